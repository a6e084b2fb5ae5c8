package auction

import (
	"context"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/project"
)

// ProjectRepository provides access to project records
type ProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
	Update(ctx context.Context, p *project.Project) error
}

// AuctionRepository provides access to auction records
type AuctionRepository interface {
	Create(ctx context.Context, a *auction.Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	Update(ctx context.Context, a *auction.Auction) error
	ListLive(ctx context.Context) ([]*auction.Auction, error)
}

// BidRepository provides access to bid records
type BidRepository interface {
	Create(ctx context.Context, b *bid.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error)
	Update(ctx context.Context, b *bid.Bid) error
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
	ListByAuctionPaged(ctx context.Context, auctionID uuid.UUID, offset, limit int) ([]*bid.Bid, int, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*bid.Bid, error)
}

// Notifier pushes auction events to connected clients. Implementations must
// not block the admission path; delivery is best-effort.
type Notifier interface {
	NotifyBidPlaced(ctx context.Context, b *bid.Bid, rank, totalBids int)
	NotifyBidUpdated(ctx context.Context, b *bid.Bid, rank, totalBids int)
	NotifyBidWithdrawn(ctx context.Context, b *bid.Bid)
	NotifyBidRejected(ctx context.Context, b *bid.Bid)
	NotifyAuctionStatus(ctx context.Context, a *auction.Auction)
	NotifyWinnerResolved(ctx context.Context, a *auction.Auction)
}

// MetricsCollector records admission and lifecycle outcomes
type MetricsCollector interface {
	RecordBidAdmitted(auctionID uuid.UUID)
	RecordBidRejected(reason string)
	RecordAuctionResolved(withWinner bool)
	ObserveAdmissionLatency(seconds float64)
}
