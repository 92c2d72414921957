package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const creditorColumns = `id, workspace_id, name, default_interest_rate, created_at, updated_at, deleted_at`

// CreditorRepository implements domain.CreditorRepository using PostgreSQL
type CreditorRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewCreditorRepository creates a new CreditorRepository
func NewCreditorRepository(pool *pgxpool.Pool) *CreditorRepository {
	return &CreditorRepository{
		pool:    pool,
		queries: New(pool),
	}
}

// Create creates a new creditor
func (r *CreditorRepository) Create(creditor *domain.Creditor) (*domain.Creditor, error) {
	rate, err := decimalToPgNumeric(creditor.DefaultInterestRate)
	if err != nil {
		return nil, fmt.Errorf("invalid interest rate: %w", err)
	}
	row := r.queries.db.QueryRow(context.Background(), `
		INSERT INTO creditors (workspace_id, name, default_interest_rate)
		VALUES ($1, $2, $3)
		RETURNING `+creditorColumns,
		creditor.WorkspaceID, creditor.Name, rate)
	return scanCreditor(row)
}

// GetByID retrieves a creditor by ID within a workspace
func (r *CreditorRepository) GetByID(workspaceID int32, id int32) (*domain.Creditor, error) {
	row := r.queries.db.QueryRow(context.Background(), `
		SELECT `+creditorColumns+` FROM creditors
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id)
	return scanCreditor(row)
}

// GetAllByWorkspace retrieves all creditors for a workspace ordered by name
func (r *CreditorRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Creditor, error) {
	rows, err := r.queries.db.Query(context.Background(), `
		SELECT `+creditorColumns+` FROM creditors
		WHERE workspace_id = $1 AND deleted_at IS NULL
		ORDER BY name`,
		workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creditors := []*domain.Creditor{}
	for rows.Next() {
		creditor, err := scanCreditor(rows)
		if err != nil {
			return nil, err
		}
		creditors = append(creditors, creditor)
	}
	return creditors, rows.Err()
}

func scanCreditor(row pgx.Row) (*domain.Creditor, error) {
	var (
		c         domain.Creditor
		rate      pgtype.Numeric
		deletedAt pgtype.Timestamptz
	)
	if err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &rate, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCreditorNotFound
		}
		return nil, err
	}
	c.DefaultInterestRate = pgNumericToDecimal(rate)
	c.DeletedAt = pgTimestamptzToTimePtr(deletedAt)
	return &c, nil
}
