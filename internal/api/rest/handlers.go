package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/errors"
	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/domain/values"
	"github.com/marketbid/auction-backend/internal/service/auction"
)

// ProjectStore is the project persistence surface the handlers need
type ProjectStore interface {
	Create(ctx context.Context, p *project.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

// SnapshotCache fronts live-state reads. Optional; nil disables caching.
type SnapshotCache interface {
	Get(ctx context.Context, auctionID uuid.UUID) (*auction.LiveState, bool)
	Put(ctx context.Context, state *auction.LiveState)
	Invalidate(ctx context.Context, auctionID uuid.UUID)
}

// Handler carries the dependencies shared by all route handlers
type Handler struct {
	engine    *auction.Engine
	projects  ProjectStore
	snapshots SnapshotCache
	logger    *slog.Logger
}

func NewHandler(engine *auction.Engine, projects ProjectStore, snapshots SnapshotCache, logger *slog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		projects:  projects,
		snapshots: snapshots,
		logger:    logger,
	}
}

// actorID extracts the authenticated caller. The gateway in front of this
// service resolves credentials and forwards the identity.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Actor-ID")
	if raw == "" {
		return uuid.Nil, errors.NewForbiddenError("actor identity required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewForbiddenError("invalid actor identity")
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, errors.NewValidationError("INVALID_ID", "malformed "+name+" in path")
	}
	return id, nil
}

func decodeAndValidate(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dest); err != nil {
		return err
	}
	return validate.Struct(dest)
}

func (h *Handler) invalidateSnapshot(ctx context.Context, auctionID uuid.UUID) {
	if h.snapshots != nil && auctionID != uuid.Nil {
		h.snapshots.Invalidate(ctx, auctionID)
	}
}

// POST /api/v1/projects
func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	min, err := values.NewMoneyFromFloat(req.BudgetMin, req.Currency)
	if err != nil {
		respondError(w, r, errors.NewValidationError("INVALID_CURRENCY", err.Error()))
		return
	}
	max, err := values.NewMoneyFromFloat(req.BudgetMax, req.Currency)
	if err != nil {
		respondError(w, r, errors.NewValidationError("INVALID_CURRENCY", err.Error()))
		return
	}
	budget, err := values.NewBudgetRange(min, max)
	if err != nil {
		respondError(w, r, errors.NewValidationError("INVALID_BUDGET", err.Error()))
		return
	}

	p := project.NewProject(req.OwnerID, req.Title, req.Category, budget,
		req.Deadline, project.ParseBiddingMode(req.Mode))
	if err := h.projects.Create(r.Context(), p); err != nil {
		respondError(w, r, errors.NewInternalError("failed to create project").WithCause(err))
		return
	}

	respondData(w, http.StatusCreated, p)
}

// GET /api/v1/projects/{id}
func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, errors.ErrProjectNotFound.WithCause(err))
		return
	}
	respondData(w, http.StatusOK, p)
}

// POST /api/v1/projects/{id}/bids submits a direct bid on a standard project
func (h *Handler) handleSubmitDirectBid(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req submitBidRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	price, err := values.NewMoneyFromFloat(req.Amount, req.Currency)
	if err != nil {
		respondError(w, r, errors.NewValidationError("INVALID_CURRENCY", err.Error()))
		return
	}

	rb, err := h.engine.SubmitDirectBid(r.Context(), projectID, req.BidderID,
		req.BidderName, price, req.EstimatedDays, req.Proposal)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, rb)
}

// POST /api/v1/auctions
func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	a, err := h.engine.CreateAuction(r.Context(), req.ProjectID, req.StartTime, req.EndTime)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, a)
}

// POST /api/v1/auctions/{id}/go-live
func (h *Handler) handleGoLive(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	a, err := h.engine.GoLive(r.Context(), auctionID, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.invalidateSnapshot(r.Context(), auctionID)
	respondData(w, http.StatusOK, a)
}

// POST /api/v1/auctions/{id}/bids
func (h *Handler) handleSubmitBid(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req submitBidRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	price, err := values.NewMoneyFromFloat(req.Amount, req.Currency)
	if err != nil {
		respondError(w, r, errors.NewValidationError("INVALID_CURRENCY", err.Error()))
		return
	}

	rb, err := h.engine.SubmitBid(r.Context(), auctionID, req.BidderID,
		req.BidderName, price, req.EstimatedDays, req.Proposal)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.invalidateSnapshot(r.Context(), auctionID)
	respondData(w, http.StatusCreated, rb)
}

// GET /api/v1/auctions/{id}/live-state
func (h *Handler) handleLiveState(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if h.snapshots != nil {
		if cached, ok := h.snapshots.Get(r.Context(), auctionID); ok {
			respondData(w, http.StatusOK, cached)
			return
		}
	}

	state, err := h.engine.LiveState(r.Context(), auctionID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if h.snapshots != nil {
		h.snapshots.Put(r.Context(), state)
	}
	respondData(w, http.StatusOK, state)
}

// GET /api/v1/auctions/{id}/bids?page&limit
func (h *Handler) handleListBids(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	bids, total, err := h.engine.ListBids(r.Context(), auctionID, page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Data:  bids,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// POST /api/v1/auctions/{id}/end
func (h *Handler) handleEndAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	a, err := h.engine.End(r.Context(), auctionID, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.invalidateSnapshot(r.Context(), auctionID)
	respondData(w, http.StatusOK, a)
}

// PUT /api/v1/bids/{id}
func (h *Handler) handleUpdateBid(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateBidRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	price, err := values.NewMoneyFromFloat(req.Price, req.Currency)
	if err != nil {
		respondError(w, r, errors.NewValidationError("INVALID_CURRENCY", err.Error()))
		return
	}

	rb, err := h.engine.UpdateBid(r.Context(), bidID, actor, price, req.EstimatedDays, req.Proposal)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.invalidateSnapshot(r.Context(), rb.AuctionID)
	respondData(w, http.StatusOK, rb)
}

// DELETE /api/v1/bids/{id}
func (h *Handler) handleWithdrawBid(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.engine.WithdrawBid(r.Context(), bidID, actor); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/bids/{id}/accept
func (h *Handler) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	b, err := h.engine.AcceptBid(r.Context(), bidID, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.invalidateSnapshot(r.Context(), b.AuctionID)
	respondData(w, http.StatusOK, b)
}

// POST /api/v1/bids/{id}/reject
func (h *Handler) handleRejectBid(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req rejectBidRequest
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}

	b, err := h.engine.RejectBid(r.Context(), bidID, actor, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.invalidateSnapshot(r.Context(), b.AuctionID)
	respondData(w, http.StatusOK, b)
}
