// Package broadcast fans price updates out to connected users.
//
// On every feed tick the engine joins the latest prices against the user
// directory's subscriptions and the connection registry's live channels,
// and pushes one frame per connection containing only that user's
// subscribed instruments. Delivery is fire-and-forget: a failed send
// detaches the connection and never blocks delivery to others.
//
// Subscription changes are pushed out-of-band, independent of the tick.
package broadcast
