package postgres

import (
	"context"
	"errors"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const workspaceColumns = `w.id, w.user_id, w.name, w.created_at, w.updated_at`

// WorkspaceRepository implements domain.WorkspaceRepository using PostgreSQL
type WorkspaceRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{
		pool:    pool,
		queries: New(pool),
	}
}

// GetByID retrieves a workspace by its ID
func (r *WorkspaceRepository) GetByID(id int32) (*domain.Workspace, error) {
	row := r.queries.db.QueryRow(context.Background(), `SELECT `+workspaceColumns+` FROM workspaces w WHERE w.id = $1`, id)
	return scanWorkspace(row)
}

// GetByUserID retrieves a workspace by user ID
func (r *WorkspaceRepository) GetByUserID(userID uuid.UUID) (*domain.Workspace, error) {
	pgUserID := pgtype.UUID{Bytes: userID, Valid: true}
	row := r.queries.db.QueryRow(context.Background(), `SELECT `+workspaceColumns+` FROM workspaces w WHERE w.user_id = $1`, pgUserID)
	return scanWorkspace(row)
}

// GetByUserAuth0ID retrieves a workspace by user's Auth0 ID
func (r *WorkspaceRepository) GetByUserAuth0ID(auth0ID string) (*domain.Workspace, error) {
	row := r.queries.db.QueryRow(context.Background(), `
		SELECT `+workspaceColumns+`
		FROM workspaces w
		JOIN users u ON u.id = w.user_id
		WHERE u.auth0_id = $1`,
		auth0ID)
	return scanWorkspace(row)
}

// Create creates a new workspace
func (r *WorkspaceRepository) Create(workspace *domain.Workspace) (*domain.Workspace, error) {
	pgUserID := pgtype.UUID{Bytes: workspace.UserID, Valid: true}
	row := r.queries.db.QueryRow(context.Background(), `
		INSERT INTO workspaces AS w (user_id, name) VALUES ($1, $2)
		RETURNING `+workspaceColumns,
		pgUserID, workspace.Name)
	return scanWorkspace(row)
}

func scanWorkspace(row pgx.Row) (*domain.Workspace, error) {
	var (
		w      domain.Workspace
		userID pgtype.UUID
	)
	if err := row.Scan(&w.ID, &userID, &w.Name, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, err
	}
	w.UserID = userID.Bytes
	return &w, nil
}
