// Package api provides the auction backend REST client.
//
// Endpoints:
//   - GET  /api/auctions/{id}      (auction snapshot)
//   - POST /api/auctions/{id}/bid  (bid submission)
//
// Authentication is an opaque bearer token supplied by the embedding
// application; the client does no refresh logic.
package api
