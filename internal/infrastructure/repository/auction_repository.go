package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/auction"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// auctionRepository implements the engine's AuctionRepository on PostgreSQL
type auctionRepository struct {
	db querier
}

func NewAuctionRepository(db *sql.DB) *auctionRepository {
	return &auctionRepository{db: db}
}

func NewAuctionRepositoryWithTx(tx *sql.Tx) *auctionRepository {
	return &auctionRepository{db: tx}
}

const auctionColumns = `
	id, project_id, status, start_time, end_time, actual_start_time,
	current_leading_bid, winner_organization_id, winning_bid_amount,
	created_at, updated_at`

func (r *auctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ProjectID, a.Status.String(), a.StartTime, a.EndTime, a.ActualStartTime,
		moneyPtrValue(a.CurrentLeadingBid), uuidPtrValue(a.WinnerOrganizationID), moneyPtrValue(a.WinningBidAmount),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

func (r *auctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("auction not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

func (r *auctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET status = $2,
			actual_start_time = $3,
			current_leading_bid = $4,
			winner_organization_id = $5,
			winning_bid_amount = $6,
			updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		a.ID, a.Status.String(), a.ActualStartTime,
		moneyPtrValue(a.CurrentLeadingBid), uuidPtrValue(a.WinnerOrganizationID), moneyPtrValue(a.WinningBidAmount),
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("auction with ID %s not found", a.ID)
	}
	return nil
}

func (r *auctionRepository) ListLive(ctx context.Context) ([]*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = 'live' ORDER BY end_time ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list live auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return auctions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*auction.Auction, error) {
	var a auction.Auction
	var statusStr string
	var actualStart sql.NullTime
	var leading, winning sql.NullString
	var winnerID sql.NullString

	err := row.Scan(
		&a.ID, &a.ProjectID, &statusStr, &a.StartTime, &a.EndTime, &actualStart,
		&leading, &winnerID, &winning,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = auction.ParseStatus(statusStr)

	if actualStart.Valid {
		a.ActualStartTime = &actualStart.Time
	}
	if leading.Valid {
		m, err := scanMoney(leading.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leading bid: %w", err)
		}
		a.CurrentLeadingBid = &m
	}
	if winnerID.Valid {
		id, err := uuid.Parse(winnerID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse winner id: %w", err)
		}
		a.WinnerOrganizationID = &id
	}
	if winning.Valid {
		m, err := scanMoney(winning.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan winning amount: %w", err)
		}
		a.WinningBidAmount = &m
	}

	return &a, nil
}

func scanMoney(s string) (values.Money, error) {
	var m values.Money
	if err := m.Scan(s); err != nil {
		return values.Money{}, err
	}
	return m, nil
}

func moneyPtrValue(m *values.Money) interface{} {
	if m == nil {
		return nil
	}
	return m.Amount().String()
}

func uuidPtrValue(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
