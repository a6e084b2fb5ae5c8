package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/bid"
)

// bidRepository implements the engine's BidRepository on PostgreSQL
type bidRepository struct {
	db querier
}

func NewBidRepository(db *sql.DB) *bidRepository {
	return &bidRepository{db: db}
}

func NewBidRepositoryWithTx(tx *sql.Tx) *bidRepository {
	return &bidRepository{db: tx}
}

const bidColumns = `
	id, auction_id, project_id, bidder_id, bidder_name, proposed_price,
	estimated_days, proposal, status, reject_reason,
	submitted_at, updated_at, accepted_at`

func (r *bidRepository) Create(ctx context.Context, b *bid.Bid) error {
	if b.ProjectID == uuid.Nil {
		return errors.New("project_id cannot be nil")
	}
	if b.BidderID == uuid.Nil {
		return errors.New("bidder_id cannot be nil")
	}
	if !b.ProposedPrice.IsPositive() {
		return errors.New("proposed price must be positive")
	}

	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	// Direct (standard-mode) bids carry no auction reference
	var auctionID interface{}
	if b.AuctionID != uuid.Nil {
		auctionID = b.AuctionID
	}

	_, err := r.db.ExecContext(ctx, query,
		b.ID, auctionID, b.ProjectID, b.BidderID, b.BidderName, b.ProposedPrice.Amount().String(),
		b.EstimatedDays, b.Proposal, b.Status.String(), nullIfEmpty(b.RejectReason),
		b.SubmittedAt, b.UpdatedAt, b.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

func (r *bidRepository) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`

	b, err := scanBid(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bid not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return b, nil
}

func (r *bidRepository) Update(ctx context.Context, b *bid.Bid) error {
	query := `
		UPDATE bids
		SET proposed_price = $2,
			estimated_days = $3,
			proposal = $4,
			status = $5,
			reject_reason = $6,
			updated_at = $7,
			accepted_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		b.ID, b.ProposedPrice.Amount().String(), b.EstimatedDays, b.Proposal,
		b.Status.String(), nullIfEmpty(b.RejectReason), b.UpdatedAt, b.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("bid with ID %s not found", b.ID)
	}
	return nil
}

func (r *bidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1 ORDER BY submitted_at ASC`
	return r.queryBids(ctx, query, auctionID)
}

func (r *bidRepository) ListByAuctionPaged(ctx context.Context, auctionID uuid.UUID, offset, limit int) ([]*bid.Bid, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM bids WHERE auction_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, auctionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bids: %w", err)
	}

	query := `SELECT ` + bidColumns + ` FROM bids
		WHERE auction_id = $1
		ORDER BY submitted_at ASC
		OFFSET $2 LIMIT $3`

	bids, err := r.queryBids(ctx, query, auctionID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

func (r *bidRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE project_id = $1 ORDER BY submitted_at ASC`
	return r.queryBids(ctx, query, projectID)
}

func (r *bidRepository) queryBids(ctx context.Context, query string, args ...interface{}) ([]*bid.Bid, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return bids, nil
}

func scanBid(row rowScanner) (*bid.Bid, error) {
	var b bid.Bid
	var auctionID sql.NullString
	var priceStr, statusStr string
	var rejectReason sql.NullString
	var acceptedAt sql.NullTime

	err := row.Scan(
		&b.ID, &auctionID, &b.ProjectID, &b.BidderID, &b.BidderName, &priceStr,
		&b.EstimatedDays, &b.Proposal, &statusStr, &rejectReason,
		&b.SubmittedAt, &b.UpdatedAt, &acceptedAt,
	)
	if err != nil {
		return nil, err
	}

	if auctionID.Valid {
		id, err := uuid.Parse(auctionID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse auction id: %w", err)
		}
		b.AuctionID = id
	}

	price, err := scanMoney(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to scan proposed price: %w", err)
	}
	b.ProposedPrice = price
	b.Status = bid.ParseStatus(statusStr)

	if rejectReason.Valid {
		b.RejectReason = rejectReason.String
	}
	if acceptedAt.Valid {
		b.AcceptedAt = &acceptedAt.Time
	}

	return &b, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
