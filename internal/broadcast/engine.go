package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/push"
	"github.com/rickgao/stockfeed/internal/registry"
)

// SubscriptionSource provides a user's current subscription set.
type SubscriptionSource interface {
	SubscriptionsOf(userID string) ([]string, error)
}

// Config holds broadcast engine configuration.
type Config struct {
	FanoutConcurrency int // Max users built and delivered in parallel per tick
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{FanoutConcurrency: 8}
}

// Stats contains runtime statistics.
type Stats struct {
	Ticks        int64 // Broadcast cycles completed
	Messages     int64 // Frames queued for delivery
	DroppedConns int64 // Connections detached after a failed send
}

// Engine fans price ticks out to subscribed, connected users.
type Engine struct {
	cfg      Config
	subs     SubscriptionSource
	registry *registry.Registry
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a broadcast engine. Register it on the feed with OnTick and
// on the directory with OnSubscriptionsChanged.
func New(cfg Config, subs SubscriptionSource, reg *registry.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FanoutConcurrency < 1 {
		cfg.FanoutConcurrency = 1
	}

	return &Engine{
		cfg:      cfg,
		subs:     subs,
		registry: reg,
		logger:   logger,
	}
}

// HandleTick implements feed.TickHandler: one broadcast cycle over the
// given price snapshot. Users with no connections are never visited; users
// with no subscriptions produce no frame.
func (e *Engine) HandleTick(prices map[string]model.PricePoint) {
	users := e.registry.Users()
	if len(users) == 0 {
		e.tickDone()
		return
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var g errgroup.Group
	g.SetLimit(e.cfg.FanoutConcurrency)
	for _, userID := range users {
		g.Go(func() error {
			e.deliverTo(userID, prices, timestamp)
			return nil
		})
	}
	g.Wait()

	e.tickDone()
}

// NotifySubscriptions pushes the updated subscription set to all of a
// user's live connections, independent of the tick cycle. Wired as the
// directory's subscription-changed hook.
func (e *Engine) NotifySubscriptions(userID string, subscriptions []string) {
	conns := e.registry.ConnectionsFor(userID)
	if len(conns) == 0 {
		return
	}

	frame, err := json.Marshal(push.SubscriptionUpdateMessage{
		Type:          push.TypeSubscriptionUpdate,
		Subscriptions: subscriptions,
	})
	if err != nil {
		e.logger.Error("marshal subscription update", "error", err)
		return
	}

	e.fanOut(conns, frame)
}

// Stats returns current statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// deliverTo builds and queues one user's price frame.
func (e *Engine) deliverTo(userID string, prices map[string]model.PricePoint, timestamp string) {
	subs, err := e.subs.SubscriptionsOf(userID)
	if err != nil {
		// Connected user missing from the directory is an internal fault.
		e.logger.Error("broadcast skipping user", "user_id", userID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	frame, err := json.Marshal(push.PriceUpdateMessage{
		Type:      push.TypePriceUpdate,
		Data:      push.FilterPrices(prices, subs),
		Timestamp: timestamp,
	})
	if err != nil {
		e.logger.Error("marshal price update", "error", err)
		return
	}

	e.fanOut(e.registry.ConnectionsFor(userID), frame)
}

// fanOut queues a frame on every connection, lazily detaching any that
// reject it.
func (e *Engine) fanOut(conns []registry.Conn, frame []byte) {
	var sent, dropped int64

	for _, conn := range conns {
		if conn.Send(frame) {
			sent++
			continue
		}
		// Dead or slow consumer: reconcile lazily, keep going.
		if e.registry.Detach(conn) {
			metrics.Connections.Dec()
		}
		conn.Close()
		dropped++
	}

	if sent > 0 {
		metrics.BroadcastMessages.Add(float64(sent))
	}
	if dropped > 0 {
		metrics.DroppedSends.Add(float64(dropped))
	}

	e.mu.Lock()
	e.stats.Messages += sent
	e.stats.DroppedConns += dropped
	e.mu.Unlock()
}

func (e *Engine) tickDone() {
	metrics.BroadcastTicks.Inc()
	e.mu.Lock()
	e.stats.Ticks++
	e.mu.Unlock()
}
