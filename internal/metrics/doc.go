// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Authenticated push-channel connection count
//   - Broadcast tick and per-connection message rates
//   - Dropped sends (dead or slow consumers)
//   - Directory snapshot saves and failures
package metrics
