// Package bid implements bid submission and outcome correlation.
//
// A submitted bid has two normal confirmation paths that race: the REST
// response, and a matching bid event arriving back over the push channel.
// Whichever lands first resolves the pending bid. If neither arrives
// within the submission timeout, the outcome is Indeterminate: the bid
// may still have been accepted server-side, so it is never reported as a
// failure.
package bid
