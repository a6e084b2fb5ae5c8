package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/values"
	"github.com/marketbid/auction-backend/internal/service/auction"
)

// LocalService runs the auction engine in-process. Used by tests and by
// single-binary deployments that embed the engine.
type LocalService struct {
	engine *auction.Engine
	actor  uuid.UUID
}

var _ AuctionService = (*LocalService)(nil)

// NewLocalService binds the service to one acting identity, mirroring the
// authenticated session an HTTP client would hold.
func NewLocalService(engine *auction.Engine, actor uuid.UUID) *LocalService {
	return &LocalService{engine: engine, actor: actor}
}

func (s *LocalService) SubmitBid(ctx context.Context, auctionID, bidderID uuid.UUID, bidderName string, price values.Money, estimatedDays int, proposal string) (*auction.RankedBid, error) {
	return s.engine.SubmitBid(ctx, auctionID, bidderID, bidderName, price, estimatedDays, proposal)
}

func (s *LocalService) UpdateBid(ctx context.Context, bidID uuid.UUID, price values.Money, estimatedDays int, proposal string) (*auction.RankedBid, error) {
	return s.engine.UpdateBid(ctx, bidID, s.actor, price, estimatedDays, proposal)
}

func (s *LocalService) WithdrawBid(ctx context.Context, bidID uuid.UUID) error {
	return s.engine.WithdrawBid(ctx, bidID, s.actor)
}

func (s *LocalService) AcceptBid(ctx context.Context, bidID uuid.UUID) (*bid.Bid, error) {
	return s.engine.AcceptBid(ctx, bidID, s.actor)
}

func (s *LocalService) RejectBid(ctx context.Context, bidID uuid.UUID, reason string) (*bid.Bid, error) {
	return s.engine.RejectBid(ctx, bidID, s.actor, reason)
}

func (s *LocalService) EndAuction(ctx context.Context, auctionID uuid.UUID) error {
	_, err := s.engine.End(ctx, auctionID, s.actor)
	return err
}

func (s *LocalService) GetLiveState(ctx context.Context, auctionID uuid.UUID) (*auction.LiveState, error) {
	return s.engine.LiveState(ctx, auctionID)
}
