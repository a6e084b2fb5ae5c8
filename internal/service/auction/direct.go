package auction

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// SubmitDirectBid admits a bid on a STANDARD-mode project. There is no
// auction lifecycle: submissions stay open until the project deadline, and
// an elapsed deadline rejects outright regardless of auction mechanics.
func (e *Engine) SubmitDirectBid(ctx context.Context, projectID, bidderID uuid.UUID, bidderName string, price values.Money, estimatedDays int, proposal string) (*RankedBid, error) {
	if err := validateSubmission(bidderID, bidderName, price, estimatedDays, proposal); err != nil {
		e.metrics.RecordBidRejected("validation")
		return nil, err
	}
	if !e.allowSubmit(bidderID) {
		e.metrics.RecordBidRejected("rate_limit")
		return nil, errors.NewRateLimitError("bid submission rate exceeded")
	}

	// No auction lock exists for direct submissions; the per-project lock
	// makes the duplicate scan and the insert commit as one unit.
	lock := e.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, errors.ErrProjectNotFound.WithCause(err)
	}
	if p.Mode != project.ModeStandard {
		return nil, errors.NewValidationError("NOT_STANDARD_PROJECT",
			"project collects bids through its live auction")
	}
	if p.Status != project.StatusOpen {
		return nil, errors.NewConflictError("PROJECT_NOT_OPEN",
			"project is no longer accepting bids")
	}
	if p.DeadlinePassed(e.clock()) {
		e.metrics.RecordBidRejected("deadline_passed")
		return nil, errors.NewDeadlinePassedError()
	}
	if err := validatePriceBounds(price, p.Budget); err != nil {
		e.metrics.RecordBidRejected("price_bounds")
		return nil, err
	}

	existing, err := e.bids.ListByProject(ctx, projectID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list bids").WithCause(err)
	}
	for _, other := range existing {
		if other.BidderID == bidderID && other.IsLive() {
			e.metrics.RecordBidRejected("duplicate")
			return nil, errors.NewDuplicateBidError()
		}
	}

	b := bid.New(uuid.Nil, projectID, bidderID, bidderName, price, estimatedDays, proposal)
	if err := e.bids.Create(ctx, b); err != nil {
		return nil, errors.NewInternalError("failed to create bid").WithCause(err)
	}

	rank, total := directRank(append(existing, b), b.ID)

	e.metrics.RecordBidAdmitted(projectID)
	e.notifier.NotifyBidPlaced(ctx, b, rank, total)

	ranked := rankedBidFrom(b, rank, total)
	return &ranked, nil
}

// projectLock returns the serialization lock for one project's direct bids
func (e *Engine) projectLock(projectID uuid.UUID) *sync.Mutex {
	e.projectMu.Lock()
	defer e.projectMu.Unlock()

	l, ok := e.projectLocks[projectID]
	if !ok {
		l = &sync.Mutex{}
		e.projectLocks[projectID] = l
	}
	return l
}

// directRank orders a project's live bids by ascending price, earliest
// submission first on ties, and returns the given bid's position.
func directRank(all []*bid.Bid, bidID uuid.UUID) (int, int) {
	live := make([]*bid.Bid, 0, len(all))
	for _, b := range all {
		if b.IsLive() {
			live = append(live, b)
		}
	}

	sort.Slice(live, func(i, j int) bool {
		if cmp := live[i].ProposedPrice.Compare(live[j].ProposedPrice); cmp != 0 {
			return cmp < 0
		}
		return live[i].SubmittedAt.Before(live[j].SubmittedAt)
	})

	for i, b := range live {
		if b.ID == bidID {
			return i + 1, len(live)
		}
	}
	return 0, len(live)
}
