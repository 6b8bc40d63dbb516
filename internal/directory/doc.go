// Package directory owns every user record and its subscription set.
//
// The directory:
//   - Owns every User record (id, email, subscription set)
//   - Guarantees at most one User per email under concurrent logins
//   - Validates subscriptions against the fixed instrument universe
//   - Fires injected hooks after successful mutations (durability,
//     out-of-band subscription notifications)
package directory
