package postgres

import (
	"context"
	"fmt"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const installmentUniqueConstraint = "uq_financing_payments_installment"

// FinancingLedger implements domain.FinancingLedger on a pgx transaction
type FinancingLedger struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewFinancingLedger creates a new FinancingLedger
func NewFinancingLedger(pool *pgxpool.Pool) *FinancingLedger {
	return &FinancingLedger{
		pool:    pool,
		queries: New(pool),
	}
}

// WithinTx runs fn in one database transaction, committing only when fn succeeds
func (l *FinancingLedger) WithinTx(ctx context.Context, fn func(tx domain.FinancingLedgerTx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&ledgerTx{queries: l.queries.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	queries *Queries
}

func (t *ledgerTx) GetFinancingForUpdate(ctx context.Context, workspaceID int32, id int32) (*domain.Financing, error) {
	return t.queries.getFinancing(ctx, workspaceID, id, true)
}

func (t *ledgerTx) GetAccountForUpdate(ctx context.Context, workspaceID int32, id int32) (*domain.Account, error) {
	return t.queries.getAccount(ctx, workspaceID, id, true)
}

func (t *ledgerTx) GetCategory(ctx context.Context, workspaceID int32, id int32) (*domain.BudgetCategory, error) {
	return t.queries.getBudgetCategory(ctx, workspaceID, id)
}

func (t *ledgerTx) InstallmentPaid(ctx context.Context, financingID int32, installmentNumber int32) (bool, error) {
	var paid bool
	err := t.queries.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM financing_payments
			WHERE financing_id = $1 AND installment_number = $2
		)`, financingID, installmentNumber).Scan(&paid)
	return paid, err
}

// CreatePayment inserts a ledger row. A concurrent insert of the same installment
// loses on the unique index and surfaces as ErrInstallmentAlreadyPaid.
func (t *ledgerTx) CreatePayment(ctx context.Context, payment *domain.FinancingPayment) (*domain.FinancingPayment, error) {
	created, err := t.queries.createPayment(ctx, payment)
	if err != nil {
		if isUniqueViolation(err, installmentUniqueConstraint) {
			return nil, domain.ErrInstallmentAlreadyPaid
		}
		return nil, err
	}
	return created, nil
}

func (t *ledgerTx) CreateTransaction(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	return t.queries.createTransaction(ctx, transaction)
}

func (t *ledgerTx) LinkTransaction(ctx context.Context, paymentID int32, transactionID int32) error {
	tag, err := t.queries.db.Exec(ctx, `UPDATE financing_payments SET transaction_id = $2 WHERE id = $1`, paymentID, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFinancingPaymentNotFound
	}
	return nil
}

func (t *ledgerTx) DebitAccount(ctx context.Context, workspaceID int32, accountID int32, amount decimal.Decimal) (*domain.Account, error) {
	return t.queries.debitAccount(ctx, workspaceID, accountID, amount)
}

func (t *ledgerTx) ListPayments(ctx context.Context, financingID int32) ([]*domain.FinancingPayment, error) {
	return t.queries.listFinancingPayments(ctx, financingID)
}

func (t *ledgerTx) UpdateFinancingAggregate(ctx context.Context, financing *domain.Financing) (*domain.Financing, error) {
	return t.queries.updateFinancingAggregate(ctx, financing)
}

func (t *ledgerTx) GetPaymentForUpdate(ctx context.Context, workspaceID int32, id int32) (*domain.FinancingPayment, error) {
	return t.queries.getPayment(ctx, workspaceID, id, true)
}

func (t *ledgerTx) DeletePayment(ctx context.Context, id int32) error {
	tag, err := t.queries.db.Exec(ctx, `DELETE FROM financing_payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFinancingPaymentNotFound
	}
	return nil
}

var (
	_ domain.FinancingLedger   = (*FinancingLedger)(nil)
	_ domain.FinancingLedgerTx = (*ledgerTx)(nil)
)
