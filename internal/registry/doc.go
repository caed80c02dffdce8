// Package registry implements the subscription registry.
//
// The registry multiplexes auction subscriptions over one push-channel
// connection:
//   - reference-counts interest per auction; the underlying channel
//     subscription exists only while the count is nonzero
//   - re-issues every active subscription whenever the connection
//     transitions into Connected, including after a reconnect
//   - routes inbound frames to the update sink registered for the
//     frame's auction; frames for unknown topics are dropped silently
//   - manages the private per-user notification queue, delivering
//     outbid alerts to a callback instead of any auction's bid log
package registry
