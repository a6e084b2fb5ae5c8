package auction

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// Status is the auction lifecycle state.
//
//	SCHEDULED → LIVE → {ENDED, CLOSED}
//
// ENDED is reached by explicit owner action (end or accept); CLOSED is
// applied by the deadline scheduler when the scheduled end time elapses.
// Both are terminal and resolve the winner identically.
type Status int

const (
	StatusScheduled Status = iota
	StatusLive
	StatusEnded
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusLive:
		return "live"
	case StatusEnded:
		return "ended"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ParseStatus converts a string to an auction Status
func ParseStatus(s string) Status {
	switch s {
	case "live":
		return StatusLive
	case "ended":
		return StatusEnded
	case "closed":
		return StatusClosed
	default:
		return StatusScheduled
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

// IsTerminal reports whether no further lifecycle transition is permitted
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusClosed
}

// Auction is the reverse-auction lifecycle for one LIVE_AUCTION project.
// The lowest admitted price leads; ties break on earliest submission.
type Auction struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Status    Status    `json:"status"`

	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	ActualStartTime *time.Time `json:"actual_start_time,omitempty"`

	// Leading bid amount among live bids; nil when no live bids exist.
	CurrentLeadingBid *values.Money `json:"current_leading_bid,omitempty"`

	// Winner fields, set exactly once on the terminal transition.
	WinnerOrganizationID *uuid.UUID    `json:"winner_organization_id,omitempty"`
	WinningBidAmount     *values.Money `json:"winning_bid_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a SCHEDULED auction for a project published in live-auction mode
func New(projectID uuid.UUID, startTime, endTime time.Time) *Auction {
	now := time.Now().UTC()
	return &Auction{
		ID:        uuid.New(),
		ProjectID: projectID,
		Status:    StatusScheduled,
		StartTime: startTime,
		EndTime:   endTime,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLive reports whether admission and ranking operations are permitted
func (a *Auction) IsLive() bool {
	return a.Status == StatusLive
}

// GoLive transitions SCHEDULED → LIVE and records the actual start time.
// Any other source state fails with INVALID_STATE_TRANSITION.
func (a *Auction) GoLive(now time.Time) error {
	if a.Status != StatusScheduled {
		return errors.NewInvalidStateTransitionError(a.Status.String(), StatusLive.String())
	}
	a.Status = StatusLive
	started := now.UTC()
	a.ActualStartTime = &started
	a.UpdatedAt = started
	return nil
}

// End transitions LIVE → ENDED (explicit owner action). Winner resolution
// happens in the coordinator as part of the same logical unit.
func (a *Auction) End() error {
	return a.terminate(StatusEnded)
}

// Close transitions LIVE → CLOSED (scheduler-driven, end time elapsed)
func (a *Auction) Close() error {
	return a.terminate(StatusClosed)
}

func (a *Auction) terminate(to Status) error {
	if a.Status != StatusLive {
		return errors.NewInvalidStateTransitionError(a.Status.String(), to.String())
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// SetLeadingBid records the current lowest live price, or clears it
func (a *Auction) SetLeadingBid(amount *values.Money) {
	a.CurrentLeadingBid = amount
	a.UpdatedAt = time.Now().UTC()
}

// SetWinner records the resolved winner. Only valid on a terminal auction.
func (a *Auction) SetWinner(organizationID uuid.UUID, amount values.Money) {
	a.WinnerOrganizationID = &organizationID
	a.WinningBidAmount = &amount
	a.UpdatedAt = time.Now().UTC()
}

// PastEnd reports whether the canonical end time has elapsed. The scheduler
// calls this with the server clock; client clocks never drive transitions.
func (a *Auction) PastEnd(now time.Time) bool {
	return !a.EndTime.IsZero() && now.After(a.EndTime)
}
