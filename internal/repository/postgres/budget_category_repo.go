package postgres

import (
	"context"
	"errors"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// getBudgetCategory loads an active category inside the ledger transaction
func (q *Queries) getBudgetCategory(ctx context.Context, workspaceID int32, id int32) (*domain.BudgetCategory, error) {
	var (
		c         domain.BudgetCategory
		deletedAt pgtype.Timestamptz
	)
	err := q.db.QueryRow(ctx, `
		SELECT id, workspace_id, name, created_at, updated_at, deleted_at
		FROM budget_categories
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id).Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetCategoryNotFound
		}
		return nil, err
	}
	c.DeletedAt = pgTimestamptzToTimePtr(deletedAt)
	return &c, nil
}
