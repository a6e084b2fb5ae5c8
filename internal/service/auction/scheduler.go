package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SnapshotInvalidator drops a cached live-state snapshot after the sweep
// closes its auction, so readers never see a stale "live" status for longer
// than one sweep interval.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, auctionID uuid.UUID)
}

// Scheduler drives the authoritative end-of-auction transition by sweeping
// live auctions against the server clock. Client-side countdowns are display
// only; a skewed client clock can never widen or narrow an admission window.
type Scheduler struct {
	engine      *Engine
	logger      *slog.Logger
	interval    time.Duration
	invalidator SnapshotInvalidator
}

// NewScheduler creates the deadline scheduler. A non-positive interval
// defaults to one second.
func NewScheduler(engine *Engine, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		engine:   engine,
		logger:   logger,
		interval: interval,
	}
}

// SetInvalidator wires the snapshot cache. Must be called before Run.
func (s *Scheduler) SetInvalidator(inv SnapshotInvalidator) {
	s.invalidator = inv
}

// Run sweeps until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "deadline scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "deadline scheduler stopped")
			return
		case <-ticker.C:
			closed, err := s.engine.CloseExpired(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "deadline sweep failed", "error", err)
				continue
			}
			if len(closed) == 0 {
				continue
			}
			if s.invalidator != nil {
				for _, id := range closed {
					s.invalidator.Invalidate(ctx, id)
				}
			}
			s.logger.InfoContext(ctx, "closed expired auctions", "count", len(closed))
		}
	}
}
