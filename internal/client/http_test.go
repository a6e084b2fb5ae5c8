package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbid/auction-backend/internal/api/rest"
	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/infrastructure/config"
	"github.com/marketbid/auction-backend/internal/infrastructure/repository"
	"github.com/marketbid/auction-backend/internal/service/auction"
	"github.com/marketbid/auction-backend/internal/testutil/fixtures"
)

type httpFixture struct {
	ts        *httptest.Server
	project   *project.Project
	auctionID uuid.UUID
}

// newHTTPFixture serves the real route tree over httptest so the HTTP client
// is exercised against the same handlers production runs.
func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	projects := repository.NewMemoryProjectRepository()
	auctions := repository.NewMemoryAuctionRepository()
	bids := repository.NewMemoryBidRepository()
	engine := auction.NewEngine(projects, auctions, bids,
		auction.NopNotifier{}, auction.NopMetrics{}, logger, auction.DefaultConfig())

	handler := rest.NewHandler(engine, projects, nil, logger)
	srv := rest.NewServer(&config.ServerConfig{
		Port:            8080,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
	}, handler, logger, rest.ServerOptions{})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	p := fixtures.NewProjectBuilder().Build()
	require.NoError(t, projects.Create(t.Context(), p))
	a, err := engine.CreateAuction(t.Context(), p.ID, time.Now().UTC(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	_, err = engine.GoLive(t.Context(), a.ID, p.OwnerID)
	require.NoError(t, err)

	return &httpFixture{ts: ts, project: p, auctionID: a.ID}
}

func TestHTTPService_SubmitAndSync(t *testing.T) {
	fx := newHTTPFixture(t)
	ctx := context.Background()

	bidder := uuid.New()
	svc := NewHTTPService(fx.ts.URL, bidder, fx.ts.Client())

	rb, err := svc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)
	assert.Equal(t, 1, rb.Rank)
	assert.Equal(t, "pending", rb.Status)

	state, err := svc.GetLiveState(ctx, fx.auctionID)
	require.NoError(t, err)
	assert.Equal(t, "live", state.Status)
	require.NotNil(t, state.LeadingBid)
	assert.Equal(t, rb.ID, state.LeadingBid.ID)

	rec, err := Reconcile(ctx, svc, fx.auctionID, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.OwnBid.Rank)
}

func TestHTTPService_ConflictErrors(t *testing.T) {
	fx := newHTTPFixture(t)
	ctx := context.Background()

	bidder := uuid.New()
	svc := NewHTTPService(fx.ts.URL, bidder, fx.ts.Client())

	_, err := svc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)

	_, err = svc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 7000), 14, "proposal")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.ErrorIs(t, err, errors.NewDuplicateBidError())
}

func TestHTTPService_ForbiddenWithoutOwnership(t *testing.T) {
	fx := newHTTPFixture(t)
	ctx := context.Background()

	bidder := uuid.New()
	bidderSvc := NewHTTPService(fx.ts.URL, bidder, fx.ts.Client())
	rb, err := bidderSvc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)

	stranger := NewHTTPService(fx.ts.URL, uuid.New(), fx.ts.Client())
	_, err = stranger.AcceptBid(ctx, rb.ID)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeForbidden))
}

func TestHTTPService_OwnerEndsAuction(t *testing.T) {
	fx := newHTTPFixture(t)
	ctx := context.Background()

	bidder := uuid.New()
	bidderSvc := NewHTTPService(fx.ts.URL, bidder, fx.ts.Client())
	rb, err := bidderSvc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)

	owner := NewHTTPService(fx.ts.URL, fx.project.OwnerID, fx.ts.Client())
	require.NoError(t, owner.EndAuction(ctx, fx.auctionID))

	state, err := owner.GetLiveState(ctx, fx.auctionID)
	require.NoError(t, err)
	assert.Equal(t, "ended", state.Status)
	require.NotNil(t, state.WinnerID)
	assert.Equal(t, rb.BidderID, *state.WinnerID)
}

func TestHTTPService_TransportFailure(t *testing.T) {
	fx := newHTTPFixture(t)
	svc := NewHTTPService(fx.ts.URL, uuid.New(), fx.ts.Client())
	fx.ts.Close()

	_, err := svc.GetLiveState(context.Background(), fx.auctionID)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
}

func TestHTTPService_WithdrawNoContent(t *testing.T) {
	fx := newHTTPFixture(t)
	ctx := context.Background()

	bidder := uuid.New()
	svc := NewHTTPService(fx.ts.URL, bidder, fx.ts.Client())
	rb, err := svc.SubmitBid(ctx, fx.auctionID, bidder, "acme services", usd(t, 8000), 14, "proposal")
	require.NoError(t, err)

	require.NoError(t, svc.WithdrawBid(ctx, rb.ID))

	_, err = Reconcile(ctx, svc, fx.auctionID, rb.ID)
	require.ErrorIs(t, err, ErrOwnBidMissing)
}
