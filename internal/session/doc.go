// Package session is the composition root of the sync core.
//
// One Session per process owns the single push-channel connection, the
// subscription registry, the REST client, and the bid submitter, and
// hands out per-auction watches. Watching an auction subscribes to its
// topic first and fetches the snapshot second, so updates racing the
// fetch are buffered by the reconciler instead of lost.
package session
