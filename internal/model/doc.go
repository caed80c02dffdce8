// Package model defines shared data types used across the auction sync core.
//
// Conventions:
//   - Money: decimal.Decimal (decimal-precise strings on the wire, never floats)
//   - Timestamps: time.Time (RFC 3339 on the wire)
//   - Auction IDs: int64, matching the backend's numeric identifiers
package model
