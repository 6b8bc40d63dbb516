package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections is the number of authenticated push channels.
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stockfeed_push_connections",
		Help: "Current number of authenticated push-channel connections.",
	})

	// BroadcastTicks counts completed broadcast cycles.
	BroadcastTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockfeed_broadcast_ticks_total",
		Help: "Total number of broadcast ticks processed.",
	})

	// BroadcastMessages counts frames delivered to connections.
	BroadcastMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockfeed_broadcast_messages_total",
		Help: "Total number of price update frames queued for delivery.",
	})

	// DroppedSends counts frames rejected by dead or slow connections.
	DroppedSends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockfeed_push_dropped_sends_total",
		Help: "Total number of frames dropped because a connection was dead or too slow.",
	})

	// SnapshotSaves counts successful directory snapshot writes.
	SnapshotSaves = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockfeed_snapshot_saves_total",
		Help: "Total number of successful directory snapshot writes.",
	})

	// SnapshotErrors counts failed directory snapshot writes.
	SnapshotErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockfeed_snapshot_errors_total",
		Help: "Total number of failed directory snapshot writes.",
	})

	// HTTPRequests counts REST requests by method.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockfeed_http_requests_total",
		Help: "Total number of REST requests served.",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(
		Connections,
		BroadcastTicks,
		BroadcastMessages,
		DroppedSends,
		SnapshotSaves,
		SnapshotErrors,
		HTTPRequests,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
