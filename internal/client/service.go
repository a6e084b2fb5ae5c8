package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/values"
	"github.com/marketbid/auction-backend/internal/service/auction"
)

// AuctionService is the single boundary a front end talks to. Implementations
// are interchangeable: Local runs against an in-process engine, HTTP talks to
// a deployed instance. Callers must not branch on which one they hold.
type AuctionService interface {
	SubmitBid(ctx context.Context, auctionID, bidderID uuid.UUID, bidderName string, price values.Money, estimatedDays int, proposal string) (*auction.RankedBid, error)
	UpdateBid(ctx context.Context, bidID uuid.UUID, price values.Money, estimatedDays int, proposal string) (*auction.RankedBid, error)
	WithdrawBid(ctx context.Context, bidID uuid.UUID) error
	AcceptBid(ctx context.Context, bidID uuid.UUID) (*bid.Bid, error)
	RejectBid(ctx context.Context, bidID uuid.UUID, reason string) (*bid.Bid, error)
	EndAuction(ctx context.Context, auctionID uuid.UUID) error
	GetLiveState(ctx context.Context, auctionID uuid.UUID) (*auction.LiveState, error)
}
