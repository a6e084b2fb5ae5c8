package project

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/values"
)

// BiddingMode selects how a project collects offers.
type BiddingMode int

const (
	// ModeStandard accepts direct bids until the project deadline.
	ModeStandard BiddingMode = iota
	// ModeLiveAuction runs a scheduled reverse auction with its own lifecycle.
	ModeLiveAuction
)

func (m BiddingMode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeLiveAuction:
		return "live_auction"
	default:
		return "unknown"
	}
}

// ParseBiddingMode converts a string to a BiddingMode
func ParseBiddingMode(s string) BiddingMode {
	if s == "live_auction" {
		return ModeLiveAuction
	}
	return ModeStandard
}

func (m BiddingMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *BiddingMode) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ParseBiddingMode(raw)
	return nil
}

type Status int

const (
	StatusOpen Status = iota
	StatusAwarded
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusAwarded:
		return "awarded"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ParseStatus converts a string to a project Status
func ParseStatus(s string) Status {
	switch s {
	case "awarded":
		return StatusAwarded
	case "closed":
		return StatusClosed
	default:
		return StatusOpen
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

// Project is a client's posted job. Immutable after its auction starts
// except for status and award fields.
type Project struct {
	ID       uuid.UUID          `json:"id"`
	OwnerID  uuid.UUID          `json:"owner_id"`
	Title    string             `json:"title"`
	Category string             `json:"category"`
	Budget   values.BudgetRange `json:"budget"`
	Deadline time.Time          `json:"deadline"`
	Mode     BiddingMode        `json:"bidding_mode"`
	Status   Status             `json:"status"`

	// Award fields, set when the auction resolves
	AwardedOrganizationID *uuid.UUID    `json:"awarded_organization_id,omitempty"`
	AwardedAmount         *values.Money `json:"awarded_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProject creates an open project owned by the given client
func NewProject(ownerID uuid.UUID, title, category string, budget values.BudgetRange, deadline time.Time, mode BiddingMode) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Category:  category,
		Budget:    budget,
		Deadline:  deadline,
		Mode:      mode,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeadlinePassed reports whether direct submissions are closed as of now.
// The caller supplies the clock so the server's view is authoritative.
func (p *Project) DeadlinePassed(now time.Time) bool {
	return !p.Deadline.IsZero() && now.After(p.Deadline)
}

// Award marks the project as awarded to the winning organization
func (p *Project) Award(organizationID uuid.UUID, amount values.Money) {
	p.Status = StatusAwarded
	p.AwardedOrganizationID = &organizationID
	p.AwardedAmount = &amount
	p.UpdatedAt = time.Now().UTC()
}

// Close marks the project closed without a winner
func (p *Project) Close() {
	p.Status = StatusClosed
	p.UpdatedAt = time.Now().UTC()
}
