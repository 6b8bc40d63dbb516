package feed

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rickgao/stockfeed/internal/model"
)

// TickHandler receives the full price snapshot after each tick.
type TickHandler interface {
	HandleTick(prices map[string]model.PricePoint)
}

// TickHandlerFunc is a function adapter for TickHandler.
type TickHandlerFunc func(map[string]model.PricePoint)

func (f TickHandlerFunc) HandleTick(prices map[string]model.PricePoint) {
	f(prices)
}

// Config holds generator configuration.
type Config struct {
	Symbols      []string      // Instrument universe (fixed for the process lifetime)
	TickInterval time.Duration // Price regeneration period (default: 1s)
	SeedMin      float64       // Lower bound of the startup seed range
	SeedMax      float64       // Upper bound of the startup seed range
	MaxMovePct   float64       // Symmetric per-tick move band (1.0 = ±1%)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Symbols:      []string{"GOOG", "TSLA", "AMZN", "META", "NVDA"},
		TickInterval: time.Second,
		SeedMin:      50,
		SeedMax:      350,
		MaxMovePct:   1.0,
	}
}

// Generator produces a synthetic price per instrument per tick.
type Generator struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	prices map[string]model.PricePoint

	handlersMu sync.Mutex
	handlers   []TickHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Generator and seeds the starting price for every symbol.
func New(cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Generator{
		cfg:    cfg,
		logger: logger,
		prices: make(map[string]model.PricePoint, len(cfg.Symbols)),
	}

	for _, sym := range cfg.Symbols {
		seed := cfg.SeedMin + rand.Float64()*(cfg.SeedMax-cfg.SeedMin)
		g.prices[sym] = model.PricePoint{Price: round2(seed)}
	}

	return g
}

// Symbols returns the instrument universe.
func (g *Generator) Symbols() []string {
	return append([]string(nil), g.cfg.Symbols...)
}

// OnTick registers a handler invoked after every regeneration.
// Handlers must be registered before Start.
func (g *Generator) OnTick(h TickHandler) {
	g.handlersMu.Lock()
	g.handlers = append(g.handlers, h)
	g.handlersMu.Unlock()
}

// Snapshot returns a copy of the latest price per symbol.
func (g *Generator) Snapshot() map[string]model.PricePoint {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]model.PricePoint, len(g.prices))
	for sym, pp := range g.prices {
		out[sym] = pp
	}
	return out
}

// Start begins the tick loop.
func (g *Generator) Start(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)

	g.wg.Add(1)
	go g.run()

	g.logger.Info("price feed started",
		"symbols", len(g.cfg.Symbols),
		"tick_interval", g.cfg.TickInterval,
	)

	return nil
}

// Stop gracefully shuts down the tick loop.
func (g *Generator) Stop(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("price feed stopped")
	case <-ctx.Done():
		g.logger.Warn("price feed stop timed out")
	}

	return nil
}

// run is the tick loop goroutine.
func (g *Generator) run() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			g.Advance()
		}
	}
}

// Advance regenerates every price once and notifies tick handlers.
// Exposed so tests can drive ticks without the timer.
func (g *Generator) Advance() {
	band := g.cfg.MaxMovePct / 100

	g.mu.Lock()
	for sym, current := range g.prices {
		pct := (rand.Float64() - 0.5) * 2 * band
		next := round2(current.Price * (1 + pct))
		if next < 0.01 {
			next = 0.01
		}
		g.prices[sym] = model.PricePoint{
			Price:         next,
			Change:        round2(next - current.Price),
			ChangePercent: round2((next - current.Price) / current.Price * 100),
		}
	}
	g.mu.Unlock()

	snapshot := g.Snapshot()

	g.handlersMu.Lock()
	handlers := g.handlers
	g.handlersMu.Unlock()

	for _, h := range handlers {
		h.HandleTick(snapshot)
	}
}

// round2 rounds to 2 decimal places for wire-friendly prices.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
