package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
)

// SnapshotSource produces the current set of user records to persist.
type SnapshotSource interface {
	Snapshot() []model.UserRecord
}

// Saver persists directory snapshots asynchronously. Mutations signal it
// through MarkDirty; back-to-back signals coalesce into a single save so
// the request path never waits on storage.
type Saver struct {
	source  SnapshotSource
	backend Snapshotter
	logger  *slog.Logger
	timeout time.Duration

	dirty chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewSaver creates a Saver that writes snapshots from source to backend.
func NewSaver(source SnapshotSource, backend Snapshotter, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		source:  source,
		backend: backend,
		logger:  logger,
		timeout: 10 * time.Second,
		dirty:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// MarkDirty signals that the directory changed. Never blocks; a pending
// signal absorbs any further ones until the next save runs.
func (s *Saver) MarkDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Start launches the save loop.
func (s *Saver) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	s.logger.Info("snapshot saver started")
	return nil
}

// Stop drains any pending save, flushes one final snapshot, and waits
// for the loop to exit.
func (s *Saver) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn("timeout waiting for snapshot saver to stop")
		return ctx.Err()
	}

	// Final flush so a mutation racing shutdown is not lost.
	if err := s.save(context.Background()); err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}

	s.logger.Info("snapshot saver stopped")
	return nil
}

func (s *Saver) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.dirty:
			if err := s.save(s.ctx); err != nil {
				s.logger.Error("failed to save snapshot", "error", err)
			}
		}
	}
}

func (s *Saver) save(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records := s.source.Snapshot()
	if err := s.backend.Save(ctx, records); err != nil {
		metrics.SnapshotErrors.Inc()
		return err
	}

	metrics.SnapshotSaves.Inc()
	s.logger.Debug("snapshot saved", "users", len(records))
	return nil
}
