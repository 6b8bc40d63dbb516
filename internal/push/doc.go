// Package push implements the push-channel server.
//
// The push channel:
//   - Upgrades HTTP requests to WebSocket connections
//   - Authenticates each connection once via an AUTH message and session token
//   - Replays current prices for the user's subscriptions on auth success
//   - Delivers broadcast frames through a per-connection outbound queue so a
//     slow consumer never stalls the sender; a queue that fills past its
//     ceiling marks the connection dead
package push
