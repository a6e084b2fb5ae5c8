package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// Pure validation rules. These run before any coordinator state is touched,
// so a validation failure never holds an auction lock.

const maxProposalLength = 10000

func validateSubmission(bidderID uuid.UUID, bidderName string, price values.Money, estimatedDays int, proposal string) error {
	if bidderID == uuid.Nil {
		return errors.NewValidationError("MISSING_BIDDER_ID", "bidder ID is required")
	}
	if bidderName == "" {
		return errors.NewValidationError("MISSING_BIDDER_NAME", "bidder name is required")
	}
	if !price.IsPositive() {
		return errors.NewValidationError("INVALID_PRICE", "proposed price must be positive")
	}
	if estimatedDays < 0 {
		return errors.NewValidationError("INVALID_TIMELINE", "estimated duration cannot be negative")
	}
	if len(proposal) > maxProposalLength {
		return errors.NewValidationError("PROPOSAL_TOO_LONG",
			fmt.Sprintf("proposal exceeds %d characters", maxProposalLength))
	}
	return nil
}

func validatePriceBounds(price values.Money, budget values.BudgetRange) error {
	if budget.IsZero() {
		return nil
	}
	if !budget.Contains(price) {
		return errors.NewValidationError("PRICE_OUT_OF_BOUNDS",
			fmt.Sprintf("proposed price %s is outside project budget %s", price, budget)).
			WithDetails(map[string]interface{}{
				"budget_min": budget.Min().String(),
				"budget_max": budget.Max().String(),
			})
	}
	return nil
}

func validateSchedule(startTime, endTime, now time.Time) error {
	if startTime.IsZero() || endTime.IsZero() {
		return errors.NewValidationError("MISSING_SCHEDULE", "start and end times are required")
	}
	if !endTime.After(startTime) {
		return errors.NewValidationError("INVALID_SCHEDULE", "end time must be after start time")
	}
	if endTime.Before(now) {
		return errors.NewValidationError("INVALID_SCHEDULE", "end time is already in the past")
	}
	return nil
}
