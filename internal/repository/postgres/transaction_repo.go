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

const transactionColumns = `id, workspace_id, account_id, name, amount, type, transaction_date, is_paid,
	notes, category_id, financing_payment_id, source, created_at, updated_at, deleted_at`

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{
		pool:    pool,
		queries: New(pool),
	}
}

// GetByFinancingPaymentID retrieves the transaction generated by a financing payment
func (r *TransactionRepository) GetByFinancingPaymentID(workspaceID int32, paymentID int32) (*domain.Transaction, error) {
	row := r.queries.db.QueryRow(context.Background(), `
		SELECT `+transactionColumns+` FROM transactions
		WHERE workspace_id = $1 AND financing_payment_id = $2 AND deleted_at IS NULL`,
		workspaceID, paymentID)
	return scanTransaction(row)
}

func (q *Queries) createTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO transactions (
			workspace_id, account_id, name, amount, type, transaction_date, is_paid,
			notes, category_id, financing_payment_id, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+transactionColumns,
		t.WorkspaceID, t.AccountID, t.Name, amount, string(t.Type), timeToPgDate(t.TransactionDate), t.IsPaid,
		stringPtrToPgText(t.Notes), int32PtrToPgInt4(t.CategoryID), int32PtrToPgInt4(t.FinancingPaymentID), t.Source,
	)
	return scanTransaction(row)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                  domain.Transaction
		amount             pgtype.Numeric
		txType             string
		transactionDate    pgtype.Date
		notes              pgtype.Text
		categoryID         pgtype.Int4
		financingPaymentID pgtype.Int4
		deletedAt          pgtype.Timestamptz
	)
	err := row.Scan(
		&t.ID, &t.WorkspaceID, &t.AccountID, &t.Name, &amount, &txType, &transactionDate, &t.IsPaid,
		&notes, &categoryID, &financingPaymentID, &t.Source, &t.CreatedAt, &t.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	t.Amount = pgNumericToDecimal(amount)
	t.Type = domain.TransactionType(txType)
	t.TransactionDate = transactionDate.Time
	t.Notes = pgTextToStringPtr(notes)
	t.CategoryID = pgInt4ToInt32Ptr(categoryID)
	t.FinancingPaymentID = pgInt4ToInt32Ptr(financingPaymentID)
	t.DeletedAt = pgTimestamptzToTimePtr(deletedAt)
	return &t, nil
}
