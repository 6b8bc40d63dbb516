package feed

import (
	"context"
	"testing"
	"time"

	"github.com/rickgao/stockfeed/internal/model"
)

func TestNew_SeedsEverySymbol(t *testing.T) {
	cfg := DefaultConfig()
	g := New(cfg, nil)

	prices := g.Snapshot()
	if len(prices) != len(cfg.Symbols) {
		t.Fatalf("seeded %d symbols, want %d", len(prices), len(cfg.Symbols))
	}

	for sym, pp := range prices {
		if pp.Price < cfg.SeedMin || pp.Price > cfg.SeedMax {
			t.Errorf("%s seed price = %v, want within [%v, %v]", sym, pp.Price, cfg.SeedMin, cfg.SeedMax)
		}
		if pp.Change != 0 || pp.ChangePercent != 0 {
			t.Errorf("%s seed change = (%v, %v), want (0, 0)", sym, pp.Change, pp.ChangePercent)
		}
	}
}

func TestAdvance_PriceAlwaysPositive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Symbols = []string{"GOOG"}
	cfg.SeedMin = 0.01
	cfg.SeedMax = 0.03
	cfg.MaxMovePct = 50 // Large moves to stress the floor

	g := New(cfg, nil)

	for i := 0; i < 10000; i++ {
		g.Advance()
		pp := g.Snapshot()["GOOG"]
		if pp.Price <= 0 {
			t.Fatalf("tick %d: price = %v, want > 0", i, pp.Price)
		}
	}
}

func TestAdvance_MoveStaysWithinBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Symbols = []string{"TSLA"}
	g := New(cfg, nil)

	for i := 0; i < 1000; i++ {
		before := g.Snapshot()["TSLA"].Price
		g.Advance()
		after := g.Snapshot()["TSLA"]

		// ±1% band plus rounding slack on both prices.
		maxMove := before*cfg.MaxMovePct/100 + 0.011
		if abs(after.Price-before) > maxMove {
			t.Fatalf("tick %d: moved %v from %v, want at most %v", i, after.Price-before, before, maxMove)
		}
		if abs(after.Change-(after.Price-before)) > 0.011 {
			t.Errorf("tick %d: change = %v, want %v", i, after.Change, after.Price-before)
		}
	}
}

func TestAdvance_NotifiesHandlers(t *testing.T) {
	cfg := DefaultConfig()
	g := New(cfg, nil)

	var got map[string]model.PricePoint
	g.OnTick(TickHandlerFunc(func(prices map[string]model.PricePoint) {
		got = prices
	}))

	g.Advance()

	if got == nil {
		t.Fatal("handler was not invoked")
	}
	if len(got) != len(cfg.Symbols) {
		t.Errorf("handler saw %d symbols, want %d", len(got), len(cfg.Symbols))
	}
}

func TestGenerator_Lifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond
	g := New(cfg, nil)

	tick := make(chan struct{}, 1)
	g.OnTick(TickHandlerFunc(func(map[string]model.PricePoint) {
		select {
		case tick <- struct{}{}:
		default:
		}
	}))

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-tick:
	case <-time.After(time.Second):
		t.Fatal("no tick observed within 1s")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
