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

const receiptColumns = `id, workspace_id, payment_id, object_id, thumbnail_path, display_path, original_path, created_at`

// PaymentReceiptRepository implements domain.PaymentReceiptRepository using PostgreSQL
type PaymentReceiptRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewPaymentReceiptRepository creates a new PaymentReceiptRepository
func NewPaymentReceiptRepository(pool *pgxpool.Pool) *PaymentReceiptRepository {
	return &PaymentReceiptRepository{
		pool:    pool,
		queries: New(pool),
	}
}

// Create records the stored variants of a receipt
func (r *PaymentReceiptRepository) Create(receipt *domain.PaymentReceipt) (*domain.PaymentReceipt, error) {
	objectID, err := uuid.Parse(receipt.ObjectID)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	row := r.queries.db.QueryRow(context.Background(), `
		INSERT INTO payment_receipts (workspace_id, payment_id, object_id, thumbnail_path, display_path, original_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+receiptColumns,
		receipt.WorkspaceID, receipt.PaymentID, pgtype.UUID{Bytes: objectID, Valid: true},
		receipt.ThumbnailPath, receipt.DisplayPath, receipt.OriginalPath)
	return scanReceipt(row)
}

// GetLatestByPaymentID retrieves the most recent receipt uploaded for a payment
func (r *PaymentReceiptRepository) GetLatestByPaymentID(workspaceID int32, paymentID int32) (*domain.PaymentReceipt, error) {
	row := r.queries.db.QueryRow(context.Background(), `
		SELECT `+receiptColumns+` FROM payment_receipts
		WHERE workspace_id = $1 AND payment_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		workspaceID, paymentID)
	return scanReceipt(row)
}

func scanReceipt(row pgx.Row) (*domain.PaymentReceipt, error) {
	var (
		rc       domain.PaymentReceipt
		objectID pgtype.UUID
	)
	err := row.Scan(&rc.ID, &rc.WorkspaceID, &rc.PaymentID, &objectID, &rc.ThumbnailPath, &rc.DisplayPath, &rc.OriginalPath, &rc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, err
	}
	rc.ObjectID = uuid.UUID(objectID.Bytes).String()
	return &rc, nil
}
