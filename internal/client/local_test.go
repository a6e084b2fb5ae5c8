package client

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/domain/values"
	"github.com/marketbid/auction-backend/internal/infrastructure/repository"
	"github.com/marketbid/auction-backend/internal/service/auction"
	"github.com/marketbid/auction-backend/internal/testutil/fixtures"
)

type localFixture struct {
	engine    *auction.Engine
	project   *project.Project
	auctionID uuid.UUID
}

func newLocalFixture(t *testing.T) *localFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	projects := repository.NewMemoryProjectRepository()
	auctions := repository.NewMemoryAuctionRepository()
	bids := repository.NewMemoryBidRepository()
	engine := auction.NewEngine(projects, auctions, bids,
		auction.NopNotifier{}, auction.NopMetrics{}, logger, auction.DefaultConfig())

	p := fixtures.NewProjectBuilder().Build()
	require.NoError(t, projects.Create(t.Context(), p))

	a, err := engine.CreateAuction(t.Context(), p.ID, time.Now().UTC(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	_, err = engine.GoLive(t.Context(), a.ID, p.OwnerID)
	require.NoError(t, err)

	return &localFixture{engine: engine, project: p, auctionID: a.ID}
}

func usd(t *testing.T, amount float64) values.Money {
	t.Helper()
	m, err := values.NewMoneyFromFloat(amount, "USD")
	require.NoError(t, err)
	return m
}

func TestLocalService_BidLifecycle(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()

	bidder := uuid.New()
	svc := NewLocalService(fx.engine, bidder)

	rb, err := svc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)
	assert.Equal(t, 1, rb.Rank)

	rb, err = svc.UpdateBid(ctx, rb.ID, usd(t, 7000), 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, rb.Rank)

	state, err := svc.GetLiveState(ctx, fx.auctionID)
	require.NoError(t, err)
	require.NotNil(t, state.LeadingBid)
	assert.Equal(t, rb.ID, state.LeadingBid.ID)

	require.NoError(t, svc.WithdrawBid(ctx, rb.ID))

	state, err = svc.GetLiveState(ctx, fx.auctionID)
	require.NoError(t, err)
	assert.Empty(t, state.Bids)
}

func TestLocalService_OwnerResolvesAuction(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()

	bidder := NewLocalService(fx.engine, uuid.New())
	rb, err := bidder.SubmitBid(ctx, fx.auctionID, uuid.New(), "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)

	owner := NewLocalService(fx.engine, fx.project.OwnerID)
	accepted, err := owner.AcceptBid(ctx, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, "accepted", accepted.Status.String())

	state, err := owner.GetLiveState(ctx, fx.auctionID)
	require.NoError(t, err)
	assert.Equal(t, "ended", state.Status)
	require.NotNil(t, state.WinnerID)
	assert.Equal(t, accepted.BidderID, *state.WinnerID)
}

func TestReconcile(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()

	bidder := uuid.New()
	svc := NewLocalService(fx.engine, bidder)

	rb, err := svc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)

	t.Run("finds own bid in the snapshot", func(t *testing.T) {
		rec, err := Reconcile(ctx, svc, fx.auctionID, rb.ID)
		require.NoError(t, err)
		require.NotNil(t, rec.OwnBid)
		assert.Equal(t, rb.ID, rec.OwnBid.ID)
		assert.Equal(t, 1, rec.OwnBid.Rank)
	})

	t.Run("no own bid to look for", func(t *testing.T) {
		rec, err := Reconcile(ctx, svc, fx.auctionID, uuid.Nil)
		require.NoError(t, err)
		assert.Nil(t, rec.OwnBid)
		assert.Len(t, rec.State.Bids, 1)
	})

	t.Run("missing own bid is surfaced with the snapshot", func(t *testing.T) {
		rec, err := Reconcile(ctx, svc, fx.auctionID, uuid.New())
		require.ErrorIs(t, err, ErrOwnBidMissing)
		require.NotNil(t, rec)
		assert.Len(t, rec.State.Bids, 1)
	})

	t.Run("withdrawn bid no longer appears", func(t *testing.T) {
		require.NoError(t, svc.WithdrawBid(ctx, rb.ID))
		_, err := Reconcile(ctx, svc, fx.auctionID, rb.ID)
		require.ErrorIs(t, err, ErrOwnBidMissing)
	})

	t.Run("unknown auction propagates not found", func(t *testing.T) {
		_, err := Reconcile(ctx, svc, uuid.New(), uuid.Nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})
}
