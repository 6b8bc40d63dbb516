// Package registry tracks live push channels per user.
//
// The registry maps a user id to the set of live push channels open for
// that user. A connection belongs to at most one user at a time. Snapshots
// handed to the broadcast engine are point-in-time consistent: connections
// attached or detached afterwards do not appear in them.
package registry
