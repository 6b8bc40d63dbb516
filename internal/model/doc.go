// Package model defines shared data types used across the stockfeed service.
//
// Conventions:
//   - Prices: float64 dollars, rounded to 2 decimals at the wire boundary
//   - IDs: uuid v4 strings for users and session tokens
//   - Subscription sets: map[string]struct{} in memory, sorted slices on the wire
package model
