package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, workspace_id, name, account_type, template, initial_balance, balance, created_at, updated_at, deleted_at`

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		queries: New(pool),
	}
}

// Create creates a new account
func (r *AccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	ctx := context.Background()
	amounts, err := numericArgs(account.InitialBalance, account.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}

	row := r.queries.db.QueryRow(ctx, `
		INSERT INTO accounts (workspace_id, name, account_type, template, initial_balance, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+accountColumns,
		account.WorkspaceID, account.Name, string(account.AccountType), string(account.Template), amounts[0], amounts[1])
	return scanAccount(row)
}

// GetByID retrieves an active account by its ID within a workspace
func (r *AccountRepository) GetByID(workspaceID int32, id int32) (*domain.Account, error) {
	return r.queries.getAccount(context.Background(), workspaceID, id, false)
}

// GetAllByWorkspace retrieves all accounts for a workspace
func (r *AccountRepository) GetAllByWorkspace(workspaceID int32, includeArchived bool) ([]*domain.Account, error) {
	ctx := context.Background()
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE workspace_id = $1`
	if !includeArchived {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY id`

	rows, err := r.queries.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Update updates an account's name
func (r *AccountRepository) Update(workspaceID int32, id int32, name string) (*domain.Account, error) {
	row := r.queries.db.QueryRow(context.Background(), `
		UPDATE accounts SET name = $3, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		workspaceID, id, name)
	return scanAccount(row)
}

// SoftDelete marks an account as deleted (sets deleted_at timestamp)
func (r *AccountRepository) SoftDelete(workspaceID int32, id int32) error {
	tag, err := r.queries.db.Exec(context.Background(), `
		UPDATE accounts SET deleted_at = NOW(), updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// getAccount loads an active account, optionally locking the row
func (q *Queries) getAccount(ctx context.Context, workspaceID int32, id int32, forUpdate bool) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanAccount(q.db.QueryRow(ctx, query, workspaceID, id))
}

// debitAccount subtracts amount from the account balance
func (q *Queries) debitAccount(ctx context.Context, workspaceID int32, id int32, amount decimal.Decimal) (*domain.Account, error) {
	pgAmount, err := decimalToPgNumeric(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	row := q.db.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $3, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		workspaceID, id, pgAmount)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a              domain.Account
		accountType    string
		template       string
		initialBalance pgtype.Numeric
		balance        pgtype.Numeric
		deletedAt      pgtype.Timestamptz
	)
	err := row.Scan(&a.ID, &a.WorkspaceID, &a.Name, &accountType, &template, &initialBalance, &balance, &a.CreatedAt, &a.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	a.AccountType = domain.AccountType(accountType)
	a.Template = domain.AccountTemplate(template)
	a.InitialBalance = pgNumericToDecimal(initialBalance)
	a.Balance = pgNumericToDecimal(balance)
	a.DeletedAt = pgTimestamptzToTimePtr(deletedAt)
	return &a, nil
}
