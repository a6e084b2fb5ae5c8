package auction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// Config tunes the admission engine
type Config struct {
	// SubmitRatePerMinute caps bid submissions per bidder
	SubmitRatePerMinute int
	// SubmitBurst is the short-term burst allowance per bidder
	SubmitBurst int
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		SubmitRatePerMinute: 30,
		SubmitBurst:         10,
	}
}

// Engine owns the authoritative auction state: an arena of per-auction
// entries keyed by ID, each serialized behind its own lock. Admission,
// ranking and lifecycle operations on one auction are linearized by that
// lock; operations on different auctions proceed in parallel.
//
// Lock acquisition order is commit order; each auction's admissions form a
// single serial history. Repositories are the durable write-through layer.
type Engine struct {
	projects ProjectRepository
	auctions AuctionRepository
	bids     BidRepository
	notifier Notifier
	metrics  MetricsCollector
	logger   *slog.Logger
	cfg      Config

	// clock is injectable so tests control time; production uses time.Now
	clock func() time.Time

	mu     sync.RWMutex
	states map[uuid.UUID]*auctionState

	limiterMu sync.Mutex
	limiters  map[uuid.UUID]*rate.Limiter

	// projectLocks serialize direct-bid admission per project; live-auction
	// admission is serialized by the auctionState lock instead.
	projectMu    sync.Mutex
	projectLocks map[uuid.UUID]*sync.Mutex
}

// auctionState is the single logical owner of one auction's admission and
// ranking state. All fields are guarded by mu.
type auctionState struct {
	mu      sync.Mutex
	loaded  bool
	auction *auction.Auction
	budget  values.BudgetRange
	ownerID uuid.UUID
	book    *rankedBook
	all     map[uuid.UUID]*bid.Bid
}

// NewEngine creates the auction engine
func NewEngine(
	projects ProjectRepository,
	auctions AuctionRepository,
	bids BidRepository,
	notifier Notifier,
	metrics MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *Engine {
	if cfg.SubmitRatePerMinute <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		projects:     projects,
		auctions:     auctions,
		bids:         bids,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
		clock:        func() time.Time { return time.Now().UTC() },
		states:       make(map[uuid.UUID]*auctionState),
		limiters:     make(map[uuid.UUID]*rate.Limiter),
		projectLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// CreateAuction publishes a live-auction project's auction in SCHEDULED state
func (e *Engine) CreateAuction(ctx context.Context, projectID uuid.UUID, startTime, endTime time.Time) (*auction.Auction, error) {
	if err := validateSchedule(startTime, endTime, e.clock()); err != nil {
		return nil, err
	}

	p, err := e.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, errors.ErrProjectNotFound.WithCause(err)
	}
	if p.Mode != project.ModeLiveAuction {
		return nil, errors.NewValidationError("NOT_AUCTION_PROJECT",
			"project is not published in live-auction mode")
	}

	a := auction.New(projectID, startTime.UTC(), endTime.UTC())
	if err := e.auctions.Create(ctx, a); err != nil {
		return nil, errors.NewInternalError("failed to create auction").WithCause(err)
	}

	e.logger.InfoContext(ctx, "auction scheduled",
		"auction_id", a.ID, "project_id", projectID, "end_time", a.EndTime)

	return a, nil
}

// GoLive transitions an auction from SCHEDULED to LIVE. Owner-only.
func (e *Engine) GoLive(ctx context.Context, auctionID, actorID uuid.UUID) (*auction.Auction, error) {
	st, err := e.state(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if actorID != st.ownerID {
		return nil, errors.NewForbiddenError("only the project owner may start the auction")
	}

	if err := st.auction.GoLive(e.clock()); err != nil {
		return nil, err
	}
	if err := e.auctions.Update(ctx, st.auction); err != nil {
		return nil, errors.NewInternalError("failed to persist auction").WithCause(err)
	}

	e.logger.InfoContext(ctx, "auction live", "auction_id", auctionID)
	e.notifier.NotifyAuctionStatus(ctx, st.auction)

	snapshot := *st.auction
	return &snapshot, nil
}

// SubmitBid admits a new bid. Price validation, duplicate check, ranking
// insert and status write commit as one unit under the auction lock.
func (e *Engine) SubmitBid(ctx context.Context, auctionID, bidderID uuid.UUID, bidderName string, price values.Money, estimatedDays int, proposal string) (*RankedBid, error) {
	start := e.clock()

	if err := validateSubmission(bidderID, bidderName, price, estimatedDays, proposal); err != nil {
		e.metrics.RecordBidRejected("validation")
		return nil, err
	}
	if !e.allowSubmit(bidderID) {
		e.metrics.RecordBidRejected("rate_limit")
		return nil, errors.NewRateLimitError("bid submission rate exceeded")
	}

	st, err := e.state(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.auction.IsLive() {
		e.metrics.RecordBidRejected("auction_not_live")
		return nil, errors.NewAuctionNotLiveError(st.auction.Status.String())
	}
	if err := validatePriceBounds(price, st.budget); err != nil {
		e.metrics.RecordBidRejected("price_bounds")
		return nil, err
	}
	if st.book.HasLiveBidFrom(bidderID) {
		e.metrics.RecordBidRejected("duplicate")
		return nil, errors.NewDuplicateBidError()
	}

	b := bid.New(auctionID, st.auction.ProjectID, bidderID, bidderName, price, estimatedDays, proposal)
	if err := e.bids.Create(ctx, b); err != nil {
		return nil, errors.NewInternalError("failed to create bid").WithCause(err)
	}

	rank := st.book.Insert(b)
	st.all[b.ID] = b
	e.refreshLeaderLocked(ctx, st)

	e.metrics.RecordBidAdmitted(auctionID)
	e.metrics.ObserveAdmissionLatency(e.clock().Sub(start).Seconds())

	total := st.book.Size()
	e.notifier.NotifyBidPlaced(ctx, b, rank, total)

	ranked := rankedBidFrom(b, rank, total)
	return &ranked, nil
}

// UpdateBid re-prices a PENDING bid. Bidder-only.
func (e *Engine) UpdateBid(ctx context.Context, bidID, actorID uuid.UUID, price values.Money, estimatedDays int, proposal string) (*RankedBid, error) {
	st, b, err := e.stateForBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	b = st.all[bidID]
	if b == nil {
		return nil, errors.ErrBidNotFound
	}
	if actorID != b.BidderID {
		return nil, errors.NewForbiddenError("only the bidder may modify this bid")
	}
	// Bid state is checked before auction state: a terminal bid stays frozen
	// with BID_NOT_EDITABLE even once its auction has ended.
	if !b.IsEditable() {
		return nil, errors.NewBidNotEditableError(b.Status.String())
	}
	if !st.auction.IsLive() {
		return nil, errors.NewAuctionNotLiveError(st.auction.Status.String())
	}
	if !price.IsPositive() {
		return nil, errors.NewValidationError("INVALID_PRICE", "proposed price must be positive")
	}
	if err := validatePriceBounds(price, st.budget); err != nil {
		return nil, err
	}

	if err := b.Reprice(price, estimatedDays, proposal); err != nil {
		return nil, err
	}
	if err := e.bids.Update(ctx, b); err != nil {
		return nil, errors.NewInternalError("failed to persist bid").WithCause(err)
	}

	rank := st.book.Reinsert(b)
	e.refreshLeaderLocked(ctx, st)

	total := st.book.Size()
	e.notifier.NotifyBidUpdated(ctx, b, rank, total)

	ranked := rankedBidFrom(b, rank, total)
	return &ranked, nil
}

// WithdrawBid removes a PENDING bid from competition. Bidder-only,
// irreversible, and only while the auction is LIVE: the terminal transition
// freezes the ranking, losing bids included.
func (e *Engine) WithdrawBid(ctx context.Context, bidID, actorID uuid.UUID) error {
	st, _, err := e.stateForBid(ctx, bidID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	b := st.all[bidID]
	if b == nil {
		return errors.ErrBidNotFound
	}
	if actorID != b.BidderID {
		return errors.NewForbiddenError("only the bidder may withdraw this bid")
	}
	if !b.IsEditable() {
		return errors.NewBidNotEditableError(b.Status.String())
	}
	if !st.auction.IsLive() {
		return errors.NewAuctionNotLiveError(st.auction.Status.String())
	}

	if err := b.Withdraw(); err != nil {
		return err
	}
	if err := e.bids.Update(ctx, b); err != nil {
		return errors.NewInternalError("failed to persist bid").WithCause(err)
	}

	st.book.Remove(bidID)
	e.refreshLeaderLocked(ctx, st)
	e.notifier.NotifyBidWithdrawn(ctx, b)

	return nil
}

// AcceptBid accepts a bid and resolves the auction. Owner-only; requires LIVE.
func (e *Engine) AcceptBid(ctx context.Context, bidID, actorID uuid.UUID) (*bid.Bid, error) {
	st, _, err := e.stateForBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	b := st.all[bidID]
	if b == nil {
		return nil, errors.ErrBidNotFound
	}
	if actorID != st.ownerID {
		return nil, errors.NewForbiddenError("only the project owner may accept bids")
	}
	if !st.auction.IsLive() {
		return nil, errors.NewAuctionNotLiveError(st.auction.Status.String())
	}

	if err := b.Accept(); err != nil {
		return nil, err
	}
	if err := e.bids.Update(ctx, b); err != nil {
		return nil, errors.NewInternalError("failed to persist bid").WithCause(err)
	}

	if err := st.auction.End(); err != nil {
		return nil, err
	}
	if err := e.resolveWinnerLocked(ctx, st); err != nil {
		return nil, err
	}

	snapshot := *b
	return &snapshot, nil
}

// RejectBid marks a PENDING bid rejected. Owner-only; permitted in any
// auction state while the bid is PENDING.
func (e *Engine) RejectBid(ctx context.Context, bidID, actorID uuid.UUID, reason string) (*bid.Bid, error) {
	st, _, err := e.stateForBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	b := st.all[bidID]
	if b == nil {
		return nil, errors.ErrBidNotFound
	}
	if actorID != st.ownerID {
		return nil, errors.NewForbiddenError("only the project owner may reject bids")
	}

	if err := b.Reject(reason); err != nil {
		return nil, err
	}
	if err := e.bids.Update(ctx, b); err != nil {
		return nil, errors.NewInternalError("failed to persist bid").WithCause(err)
	}

	st.book.Remove(bidID)
	if st.auction.IsLive() {
		e.refreshLeaderLocked(ctx, st)
	}
	e.notifier.NotifyBidRejected(ctx, b)

	snapshot := *b
	return &snapshot, nil
}

// End terminates a LIVE auction by explicit owner action and resolves the winner
func (e *Engine) End(ctx context.Context, auctionID, actorID uuid.UUID) (*auction.Auction, error) {
	st, err := e.state(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if actorID != st.ownerID {
		return nil, errors.NewForbiddenError("only the project owner may end the auction")
	}

	if err := st.auction.End(); err != nil {
		return nil, err
	}
	if err := e.resolveWinnerLocked(ctx, st); err != nil {
		return nil, err
	}

	snapshot := *st.auction
	return &snapshot, nil
}

// CloseExpired terminates every LIVE auction whose canonical end time has
// elapsed against the server clock, returning the IDs it closed. Called by
// the deadline scheduler; client countdowns never drive this transition.
func (e *Engine) CloseExpired(ctx context.Context) ([]uuid.UUID, error) {
	live, err := e.auctions.ListLive(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list live auctions").WithCause(err)
	}

	now := e.clock()
	var closed []uuid.UUID
	for _, a := range live {
		if !a.PastEnd(now) {
			continue
		}

		st, err := e.state(ctx, a.ID)
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to load auction for close",
				"auction_id", a.ID, "error", err)
			continue
		}

		st.mu.Lock()
		// Re-check under the lock: an owner action may have raced the sweep.
		if st.auction.IsLive() && st.auction.PastEnd(now) {
			if err := st.auction.Close(); err == nil {
				if err := e.resolveWinnerLocked(ctx, st); err != nil {
					e.logger.ErrorContext(ctx, "failed to resolve winner on close",
						"auction_id", a.ID, "error", err)
				} else {
					closed = append(closed, a.ID)
				}
			}
		}
		st.mu.Unlock()
	}

	return closed, nil
}

// LiveState returns the authoritative snapshot for one auction. Idempotent:
// repeated calls without intervening mutation return identical snapshots
// apart from the time fields.
func (e *Engine) LiveState(ctx context.Context, auctionID uuid.UUID) (*LiveState, error) {
	st, err := e.state(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.clock()
	var remaining time.Duration
	if st.auction.IsLive() && st.auction.EndTime.After(now) {
		remaining = st.auction.EndTime.Sub(now)
	}

	ranked := st.book.Ranked()
	total := len(ranked)
	out := &LiveState{
		AuctionID:        st.auction.ID,
		ProjectID:        st.auction.ProjectID,
		Status:           st.auction.Status.String(),
		Bids:             make([]RankedBid, 0, total),
		TimeRemaining:    remaining,
		WinnerID:         st.auction.WinnerOrganizationID,
		WinningBidAmount: st.auction.WinningBidAmount,
		AsOf:             now,
	}

	for i, b := range ranked {
		rb := rankedBidFrom(b, i+1, total)
		out.Bids = append(out.Bids, rb)
		if i == 0 {
			leader := rb
			out.LeadingBid = &leader
		}
	}

	return out, nil
}

// RankOf returns a bid's current 1-based rank, or 0 if it is out of ranking
func (e *Engine) RankOf(ctx context.Context, bidID uuid.UUID) (int, error) {
	st, _, err := e.stateForBid(ctx, bidID)
	if err != nil {
		return 0, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.book.RankOf(bidID), nil
}

// ListBids returns the auction's full bid history, newest page first by
// submission time, including withdrawn and rejected bids.
func (e *Engine) ListBids(ctx context.Context, auctionID uuid.UUID, page, limit int) ([]RankedBid, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	st, err := e.state(ctx, auctionID)
	if err != nil {
		return nil, 0, err
	}

	records, total, err := e.bids.ListByAuctionPaged(ctx, auctionID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, errors.NewInternalError("failed to list bids").WithCause(err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]RankedBid, 0, len(records))
	for _, b := range records {
		out = append(out, rankedBidFrom(b, st.book.RankOf(b.ID), st.book.Size()))
	}
	return out, total, nil
}

// resolveWinnerLocked runs on the terminal transition with the state lock
// held. The ACCEPTED bid wins if one exists; otherwise the current leader is
// promoted. No bids means no winner and the project closes unawarded.
func (e *Engine) resolveWinnerLocked(ctx context.Context, st *auctionState) error {
	var winner *bid.Bid
	for _, b := range st.all {
		if b.Status == bid.StatusAccepted {
			winner = b
			break
		}
	}
	if winner == nil {
		if leader := st.book.Leader(); leader != nil {
			if err := leader.Accept(); err == nil {
				if err := e.bids.Update(ctx, leader); err != nil {
					return errors.NewInternalError("failed to persist winning bid").WithCause(err)
				}
				winner = leader
			}
		}
	}

	p, err := e.projects.GetByID(ctx, st.auction.ProjectID)
	if err != nil {
		return errors.ErrProjectNotFound.WithCause(err)
	}

	if winner != nil {
		st.auction.SetWinner(winner.BidderID, winner.ProposedPrice)
		p.Award(winner.BidderID, winner.ProposedPrice)
	} else {
		p.Close()
	}

	if err := e.auctions.Update(ctx, st.auction); err != nil {
		return errors.NewInternalError("failed to persist auction").WithCause(err)
	}
	if err := e.projects.Update(ctx, p); err != nil {
		return errors.NewInternalError("failed to persist project").WithCause(err)
	}

	e.metrics.RecordAuctionResolved(winner != nil)
	e.logger.InfoContext(ctx, "auction resolved",
		"auction_id", st.auction.ID,
		"status", st.auction.Status.String(),
		"has_winner", winner != nil)

	e.notifier.NotifyAuctionStatus(ctx, st.auction)
	e.notifier.NotifyWinnerResolved(ctx, st.auction)

	return nil
}

// refreshLeaderLocked recomputes the auction's leading amount and persists it
func (e *Engine) refreshLeaderLocked(ctx context.Context, st *auctionState) {
	var leading *values.Money
	if leader := st.book.Leader(); leader != nil {
		amount := leader.ProposedPrice
		leading = &amount
	}
	st.auction.SetLeadingBid(leading)

	if err := e.auctions.Update(ctx, st.auction); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist leading bid",
			"auction_id", st.auction.ID, "error", err)
	}
}

// state returns the serialized owner entry for an auction, hydrating it from
// the repositories on first touch (late process start, failover).
func (e *Engine) state(ctx context.Context, auctionID uuid.UUID) (*auctionState, error) {
	e.mu.RLock()
	st, ok := e.states[auctionID]
	e.mu.RUnlock()

	if !ok {
		e.mu.Lock()
		st, ok = e.states[auctionID]
		if !ok {
			st = &auctionState{
				book: newRankedBook(),
				all:  make(map[uuid.UUID]*bid.Bid),
			}
			e.states[auctionID] = st
		}
		e.mu.Unlock()
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.loaded {
		if err := e.hydrateLocked(ctx, st, auctionID); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// hydrateLocked loads the auction, its project's budget, and the live bid
// book from the repositories. Called with st.mu held.
func (e *Engine) hydrateLocked(ctx context.Context, st *auctionState, auctionID uuid.UUID) error {
	a, err := e.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return errors.ErrAuctionNotFound.WithCause(err)
	}

	p, err := e.projects.GetByID(ctx, a.ProjectID)
	if err != nil {
		return errors.ErrProjectNotFound.WithCause(err)
	}

	records, err := e.bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return errors.NewInternalError("failed to load bids").WithCause(err)
	}

	st.auction = a
	st.budget = p.Budget
	st.ownerID = p.OwnerID
	for _, b := range records {
		st.all[b.ID] = b
		if b.IsLive() {
			st.book.Insert(b)
		}
	}
	st.loaded = true
	return nil
}

// stateForBid routes a bid-keyed operation to its auction's state entry
func (e *Engine) stateForBid(ctx context.Context, bidID uuid.UUID) (*auctionState, *bid.Bid, error) {
	b, err := e.bids.GetByID(ctx, bidID)
	if err != nil {
		return nil, nil, errors.ErrBidNotFound.WithCause(err)
	}

	st, err := e.state(ctx, b.AuctionID)
	if err != nil {
		return nil, nil, err
	}
	return st, b, nil
}

func (e *Engine) allowSubmit(bidderID uuid.UUID) bool {
	e.limiterMu.Lock()
	defer e.limiterMu.Unlock()

	limiter, ok := e.limiters[bidderID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(e.cfg.SubmitRatePerMinute)/60.0), e.cfg.SubmitBurst)
		e.limiters[bidderID] = limiter
	}
	return limiter.Allow()
}
