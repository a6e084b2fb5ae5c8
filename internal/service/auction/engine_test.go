package auction

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domauction "github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/bid"
	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/domain/values"
	"github.com/marketbid/auction-backend/internal/infrastructure/repository"
	"github.com/marketbid/auction-backend/internal/testutil/fixtures"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier captures bid-placed broadcasts for assertions
type recordingNotifier struct {
	NopNotifier
	mu     sync.Mutex
	placed []placedEvent
}

type placedEvent struct {
	bidID uuid.UUID
	rank  int
	total int
}

func (r *recordingNotifier) NotifyBidPlaced(_ context.Context, b *bid.Bid, rank, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, placedEvent{b.ID, rank, total})
}

// engineFixture wires the engine to in-memory repositories with an injectable
// clock so tests drive deadline behavior deterministically.
type engineFixture struct {
	engine   *Engine
	projects *repository.MemoryProjectRepository
	auctions *repository.MemoryAuctionRepository
	bids     *repository.MemoryBidRepository
	project  *project.Project
	auction  *domauction.Auction
	now      time.Time
}

func newEngineFixture(t *testing.T, cfg Config) *engineFixture {
	t.Helper()
	fx := &engineFixture{
		projects: repository.NewMemoryProjectRepository(),
		auctions: repository.NewMemoryAuctionRepository(),
		bids:     repository.NewMemoryBidRepository(),
		now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	fx.engine = NewEngine(fx.projects, fx.auctions, fx.bids, NopNotifier{}, NopMetrics{}, testLogger(), cfg)
	fx.engine.clock = func() time.Time { return fx.now }
	return fx
}

// newLiveAuctionFixture seeds a live-auction project, schedules its auction
// and transitions it to LIVE.
func newLiveAuctionFixture(t *testing.T) *engineFixture {
	t.Helper()
	fx := newEngineFixture(t, DefaultConfig())
	ctx := context.Background()

	p := fixtures.NewProjectBuilder().WithBudget(1000, 10000).Build()
	require.NoError(t, fx.projects.Create(ctx, p))
	fx.project = p

	a, err := fx.engine.CreateAuction(ctx, p.ID, fx.now, fx.now.Add(time.Hour))
	require.NoError(t, err)

	live, err := fx.engine.GoLive(ctx, a.ID, p.OwnerID)
	require.NoError(t, err)
	fx.auction = live
	return fx
}

func (fx *engineFixture) submit(t *testing.T, price float64) (*RankedBid, uuid.UUID) {
	t.Helper()
	bidderID := uuid.New()
	rb, err := fx.engine.SubmitBid(context.Background(), fx.auction.ID, bidderID,
		"Contractor "+bidderID.String()[:8],
		values.MustNewMoneyFromFloat(price, values.USD), 30, "full scope, materials included")
	require.NoError(t, err)
	return rb, bidderID
}

func TestCreateAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules auction for live-auction project", func(t *testing.T) {
		fx := newEngineFixture(t, DefaultConfig())
		p := fixtures.NewProjectBuilder().Build()
		require.NoError(t, fx.projects.Create(ctx, p))

		a, err := fx.engine.CreateAuction(ctx, p.ID, fx.now, fx.now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusScheduled, a.Status)
		assert.Equal(t, p.ID, a.ProjectID)

		stored, err := fx.auctions.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusScheduled, stored.Status)
	})

	t.Run("rejects standard-mode project", func(t *testing.T) {
		fx := newEngineFixture(t, DefaultConfig())
		p := fixtures.NewProjectBuilder().WithMode(project.ModeStandard).Build()
		require.NoError(t, fx.projects.Create(ctx, p))

		_, err := fx.engine.CreateAuction(ctx, p.ID, fx.now, fx.now.Add(time.Hour))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("rejects inverted schedule", func(t *testing.T) {
		fx := newEngineFixture(t, DefaultConfig())
		p := fixtures.NewProjectBuilder().Build()
		require.NoError(t, fx.projects.Create(ctx, p))

		_, err := fx.engine.CreateAuction(ctx, p.ID, fx.now.Add(time.Hour), fx.now)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("unknown project", func(t *testing.T) {
		fx := newEngineFixture(t, DefaultConfig())
		_, err := fx.engine.CreateAuction(ctx, uuid.New(), fx.now, fx.now.Add(time.Hour))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})
}

func TestGoLive(t *testing.T) {
	ctx := context.Background()

	t.Run("owner starts the auction", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		assert.Equal(t, domauction.StatusLive, fx.auction.Status)
		require.NotNil(t, fx.auction.ActualStartTime)

		stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusLive, stored.Status)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		fx := newEngineFixture(t, DefaultConfig())
		p := fixtures.NewProjectBuilder().Build()
		require.NoError(t, fx.projects.Create(ctx, p))
		a, err := fx.engine.CreateAuction(ctx, p.ID, fx.now, fx.now.Add(time.Hour))
		require.NoError(t, err)

		_, err = fx.engine.GoLive(ctx, a.ID, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	})

	t.Run("already live is a conflict", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		_, err := fx.engine.GoLive(ctx, fx.auction.ID, fx.project.OwnerID)
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})
}

func TestSubmitBid_ReverseRanking(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	rb1, _ := fx.submit(t, 8000)
	assert.Equal(t, 1, rb1.Rank)

	// Lower price takes the lead
	rb2, _ := fx.submit(t, 6000)
	assert.Equal(t, 1, rb2.Rank)
	assert.Equal(t, 2, rb2.TotalBids)

	// Middle price slots between them
	rb3, _ := fx.submit(t, 7000)
	assert.Equal(t, 2, rb3.Rank)
	assert.Equal(t, 3, rb3.TotalBids)

	state, err := fx.engine.LiveState(ctx, fx.auction.ID)
	require.NoError(t, err)
	require.Len(t, state.Bids, 3)
	assert.Equal(t, rb2.ID, state.Bids[0].ID)
	assert.Equal(t, rb3.ID, state.Bids[1].ID)
	assert.Equal(t, rb1.ID, state.Bids[2].ID)
	require.NotNil(t, state.LeadingBid)
	assert.Equal(t, rb2.ID, state.LeadingBid.ID)

	// Leading amount persists on the auction record
	stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentLeadingBid)
	assert.True(t, stored.CurrentLeadingBid.Equal(values.MustNewMoneyFromFloat(6000, values.USD)))
}

func TestSubmitBid_TieBreaksOnEarliestSubmission(t *testing.T) {
	fx := newLiveAuctionFixture(t)

	first, _ := fx.submit(t, 5000)
	second, _ := fx.submit(t, 5000)

	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, 2, second.Rank)

	state, err := fx.engine.LiveState(context.Background(), fx.auction.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, state.Bids[0].ID)
	assert.Equal(t, second.ID, state.Bids[1].ID)
}

func TestSubmitBid_DuplicateRejected(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	_, bidderID := fx.submit(t, 7000)

	_, err := fx.engine.SubmitBid(ctx, fx.auction.ID, bidderID, "Contractor",
		values.MustNewMoneyFromFloat(6500, values.USD), 30, "second attempt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.NewDuplicateBidError())
}

func TestSubmitBid_AllowedAfterWithdrawal(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	rb, bidderID := fx.submit(t, 7000)
	require.NoError(t, fx.engine.WithdrawBid(ctx, rb.ID, bidderID))

	// A fresh submission is permitted once the live bid is gone
	again, err := fx.engine.SubmitBid(ctx, fx.auction.ID, bidderID, "Contractor",
		values.MustNewMoneyFromFloat(6500, values.USD), 30, "revised offer")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Rank)
	assert.NotEqual(t, rb.ID, again.ID)
}

func TestSubmitBid_AuctionNotLive(t *testing.T) {
	ctx := context.Background()

	t.Run("scheduled auction refuses bids", func(t *testing.T) {
		fx := newEngineFixture(t, DefaultConfig())
		p := fixtures.NewProjectBuilder().Build()
		require.NoError(t, fx.projects.Create(ctx, p))
		a, err := fx.engine.CreateAuction(ctx, p.ID, fx.now, fx.now.Add(time.Hour))
		require.NoError(t, err)

		_, err = fx.engine.SubmitBid(ctx, a.ID, uuid.New(), "Contractor",
			values.MustNewMoneyFromFloat(5000, values.USD), 30, "too early")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewAuctionNotLiveError("scheduled"))
	})

	t.Run("ended auction refuses bids", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		_, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)

		_, err = fx.engine.SubmitBid(ctx, fx.auction.ID, uuid.New(), "Contractor",
			values.MustNewMoneyFromFloat(5000, values.USD), 30, "too late")
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})
}

func TestSubmitBid_PriceBounds(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	_, err := fx.engine.SubmitBid(ctx, fx.auction.ID, uuid.New(), "Contractor",
		values.MustNewMoneyFromFloat(50000, values.USD), 30, "way over budget")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PRICE_OUT_OF_BOUNDS", appErr.Code)
	assert.Contains(t, appErr.Details, "budget_max")
}

func TestSubmitBid_Validation(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		bidderID uuid.UUID
		bidder   string
		price    float64
		days     int
		wantCode string
	}{
		{"missing bidder id", uuid.Nil, "Contractor", 5000, 30, "MISSING_BIDDER_ID"},
		{"missing bidder name", uuid.New(), "", 5000, 30, "MISSING_BIDDER_NAME"},
		{"zero price", uuid.New(), "Contractor", 0, 30, "INVALID_PRICE"},
		{"negative timeline", uuid.New(), "Contractor", 5000, -1, "INVALID_TIMELINE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.engine.SubmitBid(ctx, fx.auction.ID, tt.bidderID, tt.bidder,
				values.MustNewMoneyFromFloat(tt.price, values.USD), tt.days, "proposal")
			require.Error(t, err)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestSubmitBid_RateLimited(t *testing.T) {
	fx := newEngineFixture(t, Config{SubmitRatePerMinute: 30, SubmitBurst: 2})
	ctx := context.Background()

	p := fixtures.NewProjectBuilder().WithBudget(1000, 10000).Build()
	require.NoError(t, fx.projects.Create(ctx, p))
	a, err := fx.engine.CreateAuction(ctx, p.ID, fx.now, fx.now.Add(time.Hour))
	require.NoError(t, err)
	_, err = fx.engine.GoLive(ctx, a.ID, p.OwnerID)
	require.NoError(t, err)
	fx.auction = a
	fx.project = p

	bidderID := uuid.New()
	rb, err := fx.engine.SubmitBid(ctx, a.ID, bidderID, "Contractor",
		values.MustNewMoneyFromFloat(5000, values.USD), 30, "first")
	require.NoError(t, err)
	require.NoError(t, fx.engine.WithdrawBid(ctx, rb.ID, bidderID))

	rb, err = fx.engine.SubmitBid(ctx, a.ID, bidderID, "Contractor",
		values.MustNewMoneyFromFloat(4900, values.USD), 30, "second")
	require.NoError(t, err)
	require.NoError(t, fx.engine.WithdrawBid(ctx, rb.ID, bidderID))

	// Burst exhausted; the limiter refills far slower than this test runs
	_, err = fx.engine.SubmitBid(ctx, a.ID, bidderID, "Contractor",
		values.MustNewMoneyFromFloat(4800, values.USD), 30, "third")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", appErr.Code)
	assert.Equal(t, 429, appErr.StatusCode)
}

func TestUpdateBid(t *testing.T) {
	ctx := context.Background()

	t.Run("lower price takes the lead", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		leader, _ := fx.submit(t, 6000)
		trailing, bidderID := fx.submit(t, 7000)
		require.Equal(t, 2, trailing.Rank)

		updated, err := fx.engine.UpdateBid(ctx, trailing.ID, bidderID,
			values.MustNewMoneyFromFloat(5500, values.USD), 0, "")
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Rank)

		state, err := fx.engine.LiveState(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, trailing.ID, state.Bids[0].ID)
		assert.Equal(t, leader.ID, state.Bids[1].ID)
	})

	t.Run("keeps terms when omitted", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, bidderID := fx.submit(t, 7000)

		updated, err := fx.engine.UpdateBid(ctx, rb.ID, bidderID,
			values.MustNewMoneyFromFloat(6000, values.USD), 0, "")
		require.NoError(t, err)
		assert.Equal(t, rb.EstimatedDays, updated.EstimatedDays)
		assert.Equal(t, rb.Proposal, updated.Proposal)
	})

	t.Run("only the bidder may edit", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, _ := fx.submit(t, 7000)

		_, err := fx.engine.UpdateBid(ctx, rb.ID, uuid.New(),
			values.MustNewMoneyFromFloat(6000, values.USD), 0, "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	})

	t.Run("accepted bid is frozen", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, bidderID := fx.submit(t, 7000)

		_, err := fx.engine.AcceptBid(ctx, rb.ID, fx.project.OwnerID)
		require.NoError(t, err)

		_, err = fx.engine.UpdateBid(ctx, rb.ID, bidderID,
			values.MustNewMoneyFromFloat(6000, values.USD), 0, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewBidNotEditableError("accepted"))
	})

	t.Run("accepted bid stays frozen after the auction ends", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, bidderID := fx.submit(t, 7000)

		// Acceptance ends the auction; the bid's own state still decides the
		// error, not the auction's.
		_, err := fx.engine.AcceptBid(ctx, rb.ID, fx.project.OwnerID)
		require.NoError(t, err)

		stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		require.Equal(t, domauction.StatusEnded, stored.Status)

		_, err = fx.engine.UpdateBid(ctx, rb.ID, bidderID,
			values.MustNewMoneyFromFloat(6000, values.USD), 0, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewBidNotEditableError("accepted"))
	})

	t.Run("pending bid after end hits the liveness guard", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		fx.submit(t, 6000)
		losing, losingBidder := fx.submit(t, 7000)

		_, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)

		_, err = fx.engine.UpdateBid(ctx, losing.ID, losingBidder,
			values.MustNewMoneyFromFloat(5000, values.USD), 0, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewAuctionNotLiveError("ended"))
	})

	t.Run("unknown bid", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		_, err := fx.engine.UpdateBid(ctx, uuid.New(), uuid.New(),
			values.MustNewMoneyFromFloat(6000, values.USD), 0, "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})
}

func TestWithdrawBid(t *testing.T) {
	ctx := context.Background()

	t.Run("withdrawal recomputes the leader", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		leader, leaderID := fx.submit(t, 6000)
		runnerUp, _ := fx.submit(t, 7000)

		require.NoError(t, fx.engine.WithdrawBid(ctx, leader.ID, leaderID))

		state, err := fx.engine.LiveState(ctx, fx.auction.ID)
		require.NoError(t, err)
		require.Len(t, state.Bids, 1)
		assert.Equal(t, runnerUp.ID, state.Bids[0].ID)

		stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.CurrentLeadingBid)
		assert.True(t, stored.CurrentLeadingBid.Equal(values.MustNewMoneyFromFloat(7000, values.USD)))
	})

	t.Run("withdrawing the only bid clears the leader", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, bidderID := fx.submit(t, 6000)

		require.NoError(t, fx.engine.WithdrawBid(ctx, rb.ID, bidderID))

		stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.CurrentLeadingBid)
	})

	t.Run("withdrawal is irreversible", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, bidderID := fx.submit(t, 6000)

		require.NoError(t, fx.engine.WithdrawBid(ctx, rb.ID, bidderID))
		err := fx.engine.WithdrawBid(ctx, rb.ID, bidderID)
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("only the bidder may withdraw", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, _ := fx.submit(t, 6000)

		err := fx.engine.WithdrawBid(ctx, rb.ID, fx.project.OwnerID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	})

	t.Run("no withdrawal once the auction has ended", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		fx.submit(t, 6000)
		losing, losingBidder := fx.submit(t, 7000)

		_, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)
		ended, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)

		err = fx.engine.WithdrawBid(ctx, losing.ID, losingBidder)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewAuctionNotLiveError("ended"))

		// The frozen ranking and the terminal auction record stay untouched
		stored, err := fx.bids.GetByID(ctx, losing.ID)
		require.NoError(t, err)
		assert.Equal(t, bid.StatusPending, stored.Status)

		after, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, ended.UpdatedAt, after.UpdatedAt)
	})
}

func TestAcceptBid(t *testing.T) {
	ctx := context.Background()

	t.Run("owner accepts a non-leading bid", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		fx.submit(t, 6000)
		chosen, chosenBidder := fx.submit(t, 7000)

		accepted, err := fx.engine.AcceptBid(ctx, chosen.ID, fx.project.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, bid.StatusAccepted, accepted.Status)
		require.NotNil(t, accepted.AcceptedAt)

		// Acceptance ends the auction and resolves the winner to the accepted
		// bid even though a cheaper one was leading.
		stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusEnded, stored.Status)
		require.NotNil(t, stored.WinnerOrganizationID)
		assert.Equal(t, chosenBidder, *stored.WinnerOrganizationID)
		require.NotNil(t, stored.WinningBidAmount)
		assert.True(t, stored.WinningBidAmount.Equal(values.MustNewMoneyFromFloat(7000, values.USD)))

		p, err := fx.projects.GetByID(ctx, fx.project.ID)
		require.NoError(t, err)
		assert.Equal(t, project.StatusAwarded, p.Status)
		require.NotNil(t, p.AwardedOrganizationID)
		assert.Equal(t, chosenBidder, *p.AwardedOrganizationID)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, bidderID := fx.submit(t, 6000)

		_, err := fx.engine.AcceptBid(ctx, rb.ID, bidderID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	})

	t.Run("requires a live auction", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, _ := fx.submit(t, 6000)
		_, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)

		_, err = fx.engine.AcceptBid(ctx, rb.ID, fx.project.OwnerID)
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})
}

func TestRejectBid(t *testing.T) {
	ctx := context.Background()

	t.Run("rejection removes the bid from ranking", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		leader, _ := fx.submit(t, 6000)
		runnerUp, _ := fx.submit(t, 7000)

		rejected, err := fx.engine.RejectBid(ctx, leader.ID, fx.project.OwnerID, "incomplete proposal")
		require.NoError(t, err)
		assert.Equal(t, bid.StatusRejected, rejected.Status)
		assert.Equal(t, "incomplete proposal", rejected.RejectReason)

		state, err := fx.engine.LiveState(ctx, fx.auction.ID)
		require.NoError(t, err)
		require.Len(t, state.Bids, 1)
		assert.Equal(t, runnerUp.ID, state.Bids[0].ID)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		rb, bidderID := fx.submit(t, 6000)

		_, err := fx.engine.RejectBid(ctx, rb.ID, bidderID, "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	})
}

func TestEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("ending promotes the current leader", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		leader, leaderBidder := fx.submit(t, 6000)
		fx.submit(t, 7000)

		ended, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusEnded, ended.Status)
		require.NotNil(t, ended.WinnerOrganizationID)
		assert.Equal(t, leaderBidder, *ended.WinnerOrganizationID)

		winning, err := fx.bids.GetByID(ctx, leader.ID)
		require.NoError(t, err)
		assert.Equal(t, bid.StatusAccepted, winning.Status)
	})

	t.Run("no bids means no winner", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)

		ended, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusEnded, ended.Status)
		assert.Nil(t, ended.WinnerOrganizationID)
		assert.Nil(t, ended.WinningBidAmount)

		p, err := fx.projects.GetByID(ctx, fx.project.ID)
		require.NoError(t, err)
		assert.Equal(t, project.StatusClosed, p.Status)
	})

	t.Run("ending twice is a conflict", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		_, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)

		_, err = fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewInvalidStateTransitionError("ended", "ended"))
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		_, err := fx.engine.End(ctx, fx.auction.ID, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
	})
}

func TestCloseExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("closes past-end auctions and promotes the leader", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		leader, leaderBidder := fx.submit(t, 6000)
		fx.submit(t, 7000)

		fx.now = fx.now.Add(2 * time.Hour)

		closed, err := fx.engine.CloseExpired(ctx)
		require.NoError(t, err)
		require.Len(t, closed, 1)
		assert.Equal(t, fx.auction.ID, closed[0])

		stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusClosed, stored.Status)
		require.NotNil(t, stored.WinnerOrganizationID)
		assert.Equal(t, leaderBidder, *stored.WinnerOrganizationID)

		winning, err := fx.bids.GetByID(ctx, leader.ID)
		require.NoError(t, err)
		assert.Equal(t, bid.StatusAccepted, winning.Status)
	})

	t.Run("leaves auctions that have time left", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		fx.submit(t, 6000)

		closed, err := fx.engine.CloseExpired(ctx)
		require.NoError(t, err)
		assert.Empty(t, closed)

		stored, err := fx.auctions.GetByID(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, domauction.StatusLive, stored.Status)
	})

	t.Run("sweep is idempotent", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		fx.submit(t, 6000)
		fx.now = fx.now.Add(2 * time.Hour)

		closed, err := fx.engine.CloseExpired(ctx)
		require.NoError(t, err)
		require.Len(t, closed, 1)

		closed, err = fx.engine.CloseExpired(ctx)
		require.NoError(t, err)
		assert.Empty(t, closed)
	})
}

func TestLiveState(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshot is idempotent without mutation", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		fx.submit(t, 6000)
		fx.submit(t, 7000)

		first, err := fx.engine.LiveState(ctx, fx.auction.ID)
		require.NoError(t, err)
		second, err := fx.engine.LiveState(ctx, fx.auction.ID)
		require.NoError(t, err)

		assert.Equal(t, first.Bids, second.Bids)
		assert.Equal(t, first.LeadingBid, second.LeadingBid)
		assert.Equal(t, first.Status, second.Status)
	})

	t.Run("reports time remaining from the server clock", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		fx.now = fx.now.Add(30 * time.Minute)

		state, err := fx.engine.LiveState(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, state.TimeRemaining)
	})

	t.Run("carries winner fields after resolution", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)
		_, bidderID := fx.submit(t, 6000)
		_, err := fx.engine.End(ctx, fx.auction.ID, fx.project.OwnerID)
		require.NoError(t, err)

		state, err := fx.engine.LiveState(ctx, fx.auction.ID)
		require.NoError(t, err)
		assert.Equal(t, "ended", state.Status)
		assert.Zero(t, state.TimeRemaining)
		require.NotNil(t, state.WinnerID)
		assert.Equal(t, bidderID, *state.WinnerID)
	})

	t.Run("unknown auction", func(t *testing.T) {
		fx := newEngineFixture(t, DefaultConfig())
		_, err := fx.engine.LiveState(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})
}

func TestRankOf(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	rb1, _ := fx.submit(t, 8000)
	rb2, bidder2 := fx.submit(t, 6000)

	rank, err := fx.engine.RankOf(ctx, rb1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	// A withdrawn bid drops out of ranking entirely
	require.NoError(t, fx.engine.WithdrawBid(ctx, rb2.ID, bidder2))
	rank, err = fx.engine.RankOf(ctx, rb2.ID)
	require.NoError(t, err)
	assert.Zero(t, rank)
}

func TestListBids(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	rb1, bidder1 := fx.submit(t, 8000)
	fx.submit(t, 6000)
	fx.submit(t, 7000)
	require.NoError(t, fx.engine.WithdrawBid(ctx, rb1.ID, bidder1))

	// History includes the withdrawn bid
	all, total, err := fx.engine.ListBids(ctx, fx.auction.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)

	page, total, err := fx.engine.ListBids(ctx, fx.auction.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	page, _, err = fx.engine.ListBids(ctx, fx.auction.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	// Out-of-range pages are empty, not errors
	page, _, err = fx.engine.ListBids(ctx, fx.auction.ID, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

// A fresh engine over the same repositories must rebuild identical ranking
// state, covering process restart and failover.
func TestEngine_HydratesFromRepositories(t *testing.T) {
	fx := newLiveAuctionFixture(t)
	ctx := context.Background()

	fx.submit(t, 8000)
	leading, _ := fx.submit(t, 6000)
	withdrawn, withdrawnBidder := fx.submit(t, 5000)
	require.NoError(t, fx.engine.WithdrawBid(ctx, withdrawn.ID, withdrawnBidder))

	restarted := NewEngine(fx.projects, fx.auctions, fx.bids, NopNotifier{}, NopMetrics{}, testLogger(), DefaultConfig())
	restarted.clock = fx.engine.clock

	state, err := restarted.LiveState(ctx, fx.auction.ID)
	require.NoError(t, err)
	require.Len(t, state.Bids, 2)
	assert.Equal(t, leading.ID, state.Bids[0].ID)
	require.NotNil(t, state.LeadingBid)
	assert.Equal(t, leading.ID, state.LeadingBid.ID)
}

func TestSubmitDirectBid(t *testing.T) {
	ctx := context.Background()

	newStandardFixture := func(t *testing.T) (*engineFixture, *project.Project) {
		fx := newEngineFixture(t, DefaultConfig())
		p := fixtures.NewProjectBuilder().
			WithMode(project.ModeStandard).
			WithBudget(1000, 10000).
			WithDeadline(fx.now.Add(72 * time.Hour)).
			Build()
		require.NoError(t, fx.projects.Create(ctx, p))
		return fx, p
	}

	t.Run("admits a bid on an open project", func(t *testing.T) {
		fx, p := newStandardFixture(t)

		rb, err := fx.engine.SubmitDirectBid(ctx, p.ID, uuid.New(), "Contractor",
			values.MustNewMoneyFromFloat(5000, values.USD), 30, "direct offer")
		require.NoError(t, err)
		assert.Equal(t, 1, rb.Rank)
		assert.Equal(t, "pending", rb.Status)
	})

	t.Run("ranks by ascending price", func(t *testing.T) {
		fx, p := newStandardFixture(t)

		_, err := fx.engine.SubmitDirectBid(ctx, p.ID, uuid.New(), "Contractor A",
			values.MustNewMoneyFromFloat(6000, values.USD), 30, "offer")
		require.NoError(t, err)

		rb, err := fx.engine.SubmitDirectBid(ctx, p.ID, uuid.New(), "Contractor B",
			values.MustNewMoneyFromFloat(7000, values.USD), 30, "offer")
		require.NoError(t, err)
		assert.Equal(t, 2, rb.Rank)
		assert.Equal(t, 2, rb.TotalBids)
	})

	t.Run("deadline passed", func(t *testing.T) {
		fx, p := newStandardFixture(t)
		fx.now = fx.now.Add(100 * time.Hour)

		_, err := fx.engine.SubmitDirectBid(ctx, p.ID, uuid.New(), "Contractor",
			values.MustNewMoneyFromFloat(5000, values.USD), 30, "too late")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewDeadlinePassedError())
	})

	t.Run("duplicate live bid rejected", func(t *testing.T) {
		fx, p := newStandardFixture(t)
		bidderID := uuid.New()

		_, err := fx.engine.SubmitDirectBid(ctx, p.ID, bidderID, "Contractor",
			values.MustNewMoneyFromFloat(5000, values.USD), 30, "first")
		require.NoError(t, err)

		_, err = fx.engine.SubmitDirectBid(ctx, p.ID, bidderID, "Contractor",
			values.MustNewMoneyFromFloat(4000, values.USD), 30, "second")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.NewDuplicateBidError())
	})

	t.Run("live-auction project refuses direct bids", func(t *testing.T) {
		fx := newLiveAuctionFixture(t)

		_, err := fx.engine.SubmitDirectBid(ctx, fx.project.ID, uuid.New(), "Contractor",
			values.MustNewMoneyFromFloat(5000, values.USD), 30, "wrong channel")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("broadcast carries the computed rank", func(t *testing.T) {
		fx, p := newStandardFixture(t)
		rec := &recordingNotifier{}
		fx.engine.notifier = rec

		_, err := fx.engine.SubmitDirectBid(ctx, p.ID, uuid.New(), "Contractor A",
			values.MustNewMoneyFromFloat(6000, values.USD), 30, "offer")
		require.NoError(t, err)

		second, err := fx.engine.SubmitDirectBid(ctx, p.ID, uuid.New(), "Contractor B",
			values.MustNewMoneyFromFloat(7000, values.USD), 30, "offer")
		require.NoError(t, err)

		require.Len(t, rec.placed, 2)
		assert.Equal(t, second.ID, rec.placed[1].bidID)
		assert.Equal(t, 2, rec.placed[1].rank)
		assert.Equal(t, 2, rec.placed[1].total)
	})

	t.Run("concurrent duplicate collapses to one admission", func(t *testing.T) {
		fx, p := newStandardFixture(t)
		bidderID := uuid.New()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = fx.engine.SubmitDirectBid(ctx, p.ID, bidderID, "Contractor",
					values.MustNewMoneyFromFloat(5000+float64(i)*100, values.USD), 30, "race")
			}(i)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, errors.NewDuplicateBidError())
				failures++
			}
		}
		assert.Equal(t, 1, failures)

		stored, err := fx.bids.ListByProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})
}
