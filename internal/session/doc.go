// Package session maps opaque tokens to user identities.
//
// Sessions map opaque tokens to user ids. They are created on every login,
// never expire, and are never revoked; they live for the process lifetime
// only. Logout is a client-side concern.
package session
