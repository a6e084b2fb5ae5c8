package bid

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// Status is the bid lifecycle state. ACCEPTED, REJECTED and WITHDRAWN are
// terminal; only a PENDING bid may be edited or withdrawn.
type Status int

const (
	StatusPending Status = iota
	StatusAccepted
	StatusRejected
	StatusWithdrawn
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// ParseStatus converts a string to a bid Status
func ParseStatus(s string) Status {
	switch s {
	case "accepted":
		return StatusAccepted
	case "rejected":
		return StatusRejected
	case "withdrawn":
		return StatusWithdrawn
	default:
		return StatusPending
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Bid is an organization's priced offer on an auction. Rank is computed by
// the ranking resolver, never stored authoritatively.
type Bid struct {
	ID             uuid.UUID    `json:"id"`
	AuctionID      uuid.UUID    `json:"auction_id"`
	ProjectID      uuid.UUID    `json:"project_id"`
	BidderID       uuid.UUID    `json:"bidder_id"`
	BidderName     string       `json:"bidder_name"`
	ProposedPrice  values.Money `json:"proposed_price"`
	EstimatedDays  int          `json:"estimated_duration"`
	Proposal       string       `json:"proposal"`
	Status         Status       `json:"status"`
	RejectReason   string       `json:"reject_reason,omitempty"`
	SubmittedAt    time.Time    `json:"submitted_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	AcceptedAt     *time.Time   `json:"accepted_at,omitempty"`
}

// New creates a PENDING bid
func New(auctionID, projectID, bidderID uuid.UUID, bidderName string, price values.Money, estimatedDays int, proposal string) *Bid {
	now := time.Now().UTC()
	return &Bid{
		ID:            uuid.New(),
		AuctionID:     auctionID,
		ProjectID:     projectID,
		BidderID:      bidderID,
		BidderName:    bidderName,
		ProposedPrice: price,
		EstimatedDays: estimatedDays,
		Proposal:      proposal,
		Status:        StatusPending,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
}

// IsLive reports whether the bid still competes for the auction.
// Withdrawn and rejected bids are out of ranking consideration.
func (b *Bid) IsLive() bool {
	return b.Status == StatusPending || b.Status == StatusAccepted
}

// IsEditable reports whether the bidder may still change price or terms
func (b *Bid) IsEditable() bool {
	return b.Status == StatusPending
}

// Reprice updates price and terms. Fails with BID_NOT_EDITABLE once the
// bid has left PENDING.
func (b *Bid) Reprice(price values.Money, estimatedDays int, proposal string) error {
	if !b.IsEditable() {
		return errors.NewBidNotEditableError(b.Status.String())
	}
	b.ProposedPrice = price
	if estimatedDays > 0 {
		b.EstimatedDays = estimatedDays
	}
	if proposal != "" {
		b.Proposal = proposal
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Withdraw removes the bid from competition. Irreversible.
func (b *Bid) Withdraw() error {
	if !b.IsEditable() {
		return errors.NewBidNotEditableError(b.Status.String())
	}
	b.Status = StatusWithdrawn
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Accept marks the bid as the accepted offer
func (b *Bid) Accept() error {
	if b.Status != StatusPending {
		return errors.NewBidNotEditableError(b.Status.String())
	}
	now := time.Now().UTC()
	b.Status = StatusAccepted
	b.AcceptedAt = &now
	b.UpdatedAt = now
	return nil
}

// Reject marks the bid rejected by the project owner, with an optional reason
func (b *Bid) Reject(reason string) error {
	if b.Status != StatusPending {
		return errors.NewBidNotEditableError(b.Status.String())
	}
	b.Status = StatusRejected
	b.RejectReason = reason
	b.UpdatedAt = time.Now().UTC()
	return nil
}
