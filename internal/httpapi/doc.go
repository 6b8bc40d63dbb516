// Package httpapi exposes the REST surface of the price-distribution
// service:
//
//   - POST /login: resolves or creates a user by email and issues a
//     session token
//   - GET /stocks: the instrument universe and latest prices
//   - POST /subscribe and POST /unsubscribe: mutate a user's
//     subscription set
//   - GET /subscriptions/{sessionId}: the current subscription set
//
// The handler also mounts the websocket push endpoint, a health check,
// and the Prometheus metrics endpoint.
package httpapi
