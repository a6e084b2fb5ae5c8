package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// RankedBid is a bid as seen by clients: the wire shape plus its computed
// position among the auction's live bids.
type RankedBid struct {
	ID            uuid.UUID    `json:"id"`
	AuctionID     uuid.UUID    `json:"auction_id,omitempty"`
	ProjectID     uuid.UUID    `json:"project_id"`
	BidderID      uuid.UUID    `json:"bidder_id"`
	BidderName    string       `json:"bidder_name"`
	ProposedPrice values.Money `json:"proposed_price"`
	EstimatedDays int          `json:"estimated_duration"`
	Proposal      string       `json:"proposal"`
	Status        string       `json:"status"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Rank          int          `json:"rank,omitempty"`
	TotalBids     int          `json:"total_bids,omitempty"`
}

// LiveState is the authoritative snapshot any client, including a late
// joiner, needs to reconstruct consistent local state without event replay.
type LiveState struct {
	AuctionID        uuid.UUID     `json:"auction_id"`
	ProjectID        uuid.UUID     `json:"project_id"`
	Status           string        `json:"status"`
	LeadingBid       *RankedBid    `json:"leading_bid,omitempty"`
	Bids             []RankedBid   `json:"bids"`
	TimeRemaining    time.Duration `json:"time_remaining"`
	WinnerID         *uuid.UUID    `json:"winner_organization_id,omitempty"`
	WinningBidAmount *values.Money `json:"winning_bid_amount,omitempty"`
	AsOf             time.Time     `json:"as_of"`
}

func rankedBidFrom(b *bid.Bid, rank, total int) RankedBid {
	return RankedBid{
		ID:            b.ID,
		AuctionID:     b.AuctionID,
		ProjectID:     b.ProjectID,
		BidderID:      b.BidderID,
		BidderName:    b.BidderName,
		ProposedPrice: b.ProposedPrice,
		EstimatedDays: b.EstimatedDays,
		Proposal:      b.Proposal,
		Status:        b.Status.String(),
		SubmittedAt:   b.SubmittedAt,
		UpdatedAt:     b.UpdatedAt,
		Rank:          rank,
		TotalBids:     total,
	}
}
