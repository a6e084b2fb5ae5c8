package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/marketbid/auction-backend/internal/domain/project"
	"github.com/marketbid/auction-backend/internal/domain/values"
)

// projectRepository implements the engine's ProjectRepository on PostgreSQL
type projectRepository struct {
	db querier
}

func NewProjectRepository(db *sql.DB) *projectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `
	id, owner_id, title, category, budget_min, budget_max, currency,
	deadline, bidding_mode, status, awarded_organization_id, awarded_amount,
	created_at, updated_at`

func (r *projectRepository) Create(ctx context.Context, p *project.Project) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Category,
		p.Budget.Min().Amount().String(), p.Budget.Max().Amount().String(), p.Budget.Min().Currency(),
		p.Deadline, p.Mode.String(), p.Status.String(),
		uuidPtrValue(p.AwardedOrganizationID), moneyPtrValue(p.AwardedAmount),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	var p project.Project
	var minStr, maxStr, currency, modeStr, statusStr string
	var awardedOrg sql.NullString
	var awardedAmount sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Category,
		&minStr, &maxStr, &currency,
		&p.Deadline, &modeStr, &statusStr,
		&awardedOrg, &awardedAmount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	min, err := values.NewMoneyFromString(minStr, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to parse budget min: %w", err)
	}
	max, err := values.NewMoneyFromString(maxStr, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to parse budget max: %w", err)
	}
	budget, err := values.NewBudgetRange(min, max)
	if err != nil {
		return nil, fmt.Errorf("invalid stored budget range: %w", err)
	}
	p.Budget = budget
	p.Mode = project.ParseBiddingMode(modeStr)
	p.Status = project.ParseStatus(statusStr)

	if awardedOrg.Valid {
		orgID, err := uuid.Parse(awardedOrg.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse awarded organization: %w", err)
		}
		p.AwardedOrganizationID = &orgID
	}
	if awardedAmount.Valid {
		m, err := scanMoney(awardedAmount.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan awarded amount: %w", err)
		}
		p.AwardedAmount = &m
	}

	return &p, nil
}

func (r *projectRepository) Update(ctx context.Context, p *project.Project) error {
	query := `
		UPDATE projects
		SET status = $2,
			awarded_organization_id = $3,
			awarded_amount = $4,
			updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Status.String(),
		uuidPtrValue(p.AwardedOrganizationID), moneyPtrValue(p.AwardedAmount),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project with ID %s not found", p.ID)
	}
	return nil
}
