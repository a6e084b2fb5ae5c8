package rest

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Request DTOs. Validation tags catch malformed input before it reaches the
// engine; domain rules (budget bounds, lifecycle) stay in the service layer.

type createProjectRequest struct {
	OwnerID   uuid.UUID `json:"owner_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=200"`
	Category  string    `json:"category" validate:"required,max=100"`
	BudgetMin float64   `json:"budget_min" validate:"required,gt=0"`
	BudgetMax float64   `json:"budget_max" validate:"required,gtefield=BudgetMin"`
	Currency  string    `json:"currency" validate:"required,len=3"`
	Deadline  time.Time `json:"deadline" validate:"required"`
	Mode      string    `json:"bidding_mode" validate:"required,oneof=standard live_auction"`
}

type createAuctionRequest struct {
	ProjectID uuid.UUID `json:"project_id" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

type submitBidRequest struct {
	BidderID      uuid.UUID `json:"bidder_id" validate:"required"`
	BidderName    string    `json:"bidder_name" validate:"required,max=200"`
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	Currency      string    `json:"currency" validate:"required,len=3"`
	EstimatedDays int       `json:"estimated_duration" validate:"gte=0"`
	Proposal      string    `json:"proposal" validate:"max=10000"`
}

type updateBidRequest struct {
	Price         float64 `json:"price" validate:"required,gt=0"`
	Currency      string  `json:"currency" validate:"required,len=3"`
	EstimatedDays int     `json:"timeline" validate:"gte=0"`
	Proposal      string  `json:"proposal" validate:"max=10000"`
}

type rejectBidRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// Response envelopes

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type errorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

type paginatedResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int         `json:"total"`
}
