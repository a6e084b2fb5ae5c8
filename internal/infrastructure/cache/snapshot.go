package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketbid/auction-backend/internal/service/auction"
)

// SnapshotCache fronts LiveState reads with a short TTL. The TTL bounds
// staleness; every mutation also invalidates explicitly.
type SnapshotCache struct {
	cache  Cache
	logger *zap.Logger
	ttl    time.Duration
}

func NewSnapshotCache(cache Cache, logger *zap.Logger, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &SnapshotCache{cache: cache, logger: logger, ttl: ttl}
}

func snapshotKey(auctionID uuid.UUID) string {
	return "auction:livestate:" + auctionID.String()
}

// Get returns the cached snapshot, or (nil, false) on a miss
func (s *SnapshotCache) Get(ctx context.Context, auctionID uuid.UUID) (*auction.LiveState, bool) {
	var state auction.LiveState
	err := s.cache.GetJSON(ctx, snapshotKey(auctionID), &state)
	if err != nil {
		var miss ErrCacheKeyNotFound
		if !errors.As(err, &miss) {
			s.logger.Warn("snapshot cache read failed",
				zap.String("auction_id", auctionID.String()),
				zap.Error(err))
		}
		return nil, false
	}
	return &state, true
}

// Put stores a snapshot. Failures are logged and swallowed: the cache is
// never allowed to fail a read path that can fall through to the engine.
func (s *SnapshotCache) Put(ctx context.Context, state *auction.LiveState) {
	if err := s.cache.SetJSON(ctx, snapshotKey(state.AuctionID), state, s.ttl); err != nil {
		s.logger.Warn("snapshot cache write failed",
			zap.String("auction_id", state.AuctionID.String()),
			zap.Error(err))
	}
}

// Invalidate drops the snapshot after a mutation
func (s *SnapshotCache) Invalidate(ctx context.Context, auctionID uuid.UUID) {
	if err := s.cache.Delete(ctx, snapshotKey(auctionID)); err != nil {
		s.logger.Warn("snapshot cache invalidation failed",
			zap.String("auction_id", auctionID.String()),
			zap.Error(err))
	}
}
