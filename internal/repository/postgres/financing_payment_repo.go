package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, workspace_id, financing_id, account_id, installment_number, payment_amount,
	principal_amount, interest_amount, discount_amount, balance_before, balance_after, payment_date,
	payment_method, payment_type, transaction_id, notes, created_at`

// FinancingPaymentRepository implements domain.FinancingPaymentRepository using PostgreSQL
type FinancingPaymentRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewFinancingPaymentRepository creates a new FinancingPaymentRepository
func NewFinancingPaymentRepository(pool *pgxpool.Pool) *FinancingPaymentRepository {
	return &FinancingPaymentRepository{
		pool:    pool,
		queries: New(pool),
	}
}

// GetByID retrieves a payment by ID within a workspace
func (r *FinancingPaymentRepository) GetByID(workspaceID int32, id int32) (*domain.FinancingPayment, error) {
	return r.queries.getPayment(context.Background(), workspaceID, id, false)
}

// GetByFinancingID retrieves every payment of a financing in ledger order
func (r *FinancingPaymentRepository) GetByFinancingID(workspaceID int32, financingID int32) ([]*domain.FinancingPayment, error) {
	rows, err := r.queries.db.Query(context.Background(), `
		SELECT `+paymentColumns+` FROM financing_payments
		WHERE workspace_id = $1 AND financing_id = $2
		ORDER BY payment_date, id`,
		workspaceID, financingID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// List returns one page of payments plus statistics over every matching row
func (r *FinancingPaymentRepository) List(workspaceID int32, filters *domain.FinancingPaymentFilters) (*domain.PaginatedFinancingPayments, error) {
	ctx := context.Background()
	where, args := paymentFilterClause(workspaceID, filters)

	var (
		stats          domain.FinancingPaymentStatistics
		totalPaid      pgtype.Numeric
		totalPrincipal pgtype.Numeric
		totalInterest  pgtype.Numeric
		totalDiscount  pgtype.Numeric
	)
	err := r.queries.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(payment_amount), 0),
		       COALESCE(SUM(principal_amount), 0),
		       COALESCE(SUM(interest_amount), 0),
		       COALESCE(SUM(discount_amount), 0),
		       COUNT(*) FILTER (WHERE payment_type = 'scheduled'),
		       COUNT(*) FILTER (WHERE payment_type = 'partial'),
		       COUNT(*) FILTER (WHERE payment_type = 'early')
		FROM financing_payments WHERE `+where, args...).Scan(
		&stats.TotalPayments, &totalPaid, &totalPrincipal, &totalInterest, &totalDiscount,
		&stats.ScheduledCount, &stats.PartialCount, &stats.EarlyCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute payment statistics: %w", err)
	}
	stats.TotalPaid = pgNumericToDecimal(totalPaid)
	stats.TotalPrincipal = pgNumericToDecimal(totalPrincipal)
	stats.TotalInterest = pgNumericToDecimal(totalInterest)
	stats.TotalDiscount = pgNumericToDecimal(totalDiscount)

	offset := (filters.Page - 1) * filters.PageSize
	pageArgs := append(args, filters.PageSize, offset)
	rows, err := r.queries.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM financing_payments WHERE %s
		ORDER BY payment_date DESC, id DESC
		LIMIT $%d OFFSET $%d`, paymentColumns, where, len(args)+1, len(args)+2),
		pageArgs...)
	if err != nil {
		return nil, err
	}
	payments, err := collectPayments(rows)
	if err != nil {
		return nil, err
	}

	totalPages := int32((stats.TotalPayments + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	return &domain.PaginatedFinancingPayments{
		Data:       payments,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalItems: stats.TotalPayments,
		TotalPages: totalPages,
		Statistics: stats,
	}, nil
}

// paymentFilterClause builds the WHERE clause shared by the page and statistics queries
func paymentFilterClause(workspaceID int32, filters *domain.FinancingPaymentFilters) (string, []interface{}) {
	conditions := []string{"workspace_id = $1"}
	args := []interface{}{workspaceID}
	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filters.FinancingID != nil {
		add("financing_id = $%d", *filters.FinancingID)
	}
	if filters.AccountID != nil {
		add("account_id = $%d", *filters.AccountID)
	}
	if filters.PaymentType != nil {
		add("payment_type = $%d", string(*filters.PaymentType))
	}
	if filters.StartDate != nil {
		add("payment_date >= $%d", timeToPgDate(*filters.StartDate))
	}
	if filters.EndDate != nil {
		add("payment_date <= $%d", timeToPgDate(*filters.EndDate))
	}
	return strings.Join(conditions, " AND "), args
}

// getPayment loads a payment, optionally locking the row
func (q *Queries) getPayment(ctx context.Context, workspaceID int32, id int32, forUpdate bool) (*domain.FinancingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM financing_payments WHERE workspace_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanPayment(q.db.QueryRow(ctx, query, workspaceID, id))
}

// listFinancingPayments returns the complete ledger of a financing
func (q *Queries) listFinancingPayments(ctx context.Context, financingID int32) ([]*domain.FinancingPayment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM financing_payments
		WHERE financing_id = $1
		ORDER BY payment_date, id`,
		financingID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (q *Queries) createPayment(ctx context.Context, p *domain.FinancingPayment) (*domain.FinancingPayment, error) {
	amounts, err := numericArgs(p.PaymentAmount, p.PrincipalAmount, p.InterestAmount, p.DiscountAmount, p.BalanceBefore, p.BalanceAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid payment amount: %w", err)
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO financing_payments (
			workspace_id, financing_id, account_id, installment_number, payment_amount,
			principal_amount, interest_amount, discount_amount, balance_before, balance_after,
			payment_date, payment_method, payment_type, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+paymentColumns,
		p.WorkspaceID, p.FinancingID, p.AccountID, int32PtrToPgInt4(p.InstallmentNumber),
		amounts[0], amounts[1], amounts[2], amounts[3], amounts[4], amounts[5],
		timeToPgDate(p.PaymentDate), string(p.PaymentMethod), string(p.PaymentType),
		stringPtrToPgText(p.Notes),
	)
	return scanPayment(row)
}

func collectPayments(rows pgx.Rows) ([]*domain.FinancingPayment, error) {
	defer rows.Close()

	payments := []*domain.FinancingPayment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.FinancingPayment, error) {
	var (
		p                 domain.FinancingPayment
		installmentNumber pgtype.Int4
		paymentAmount     pgtype.Numeric
		principalAmount   pgtype.Numeric
		interestAmount    pgtype.Numeric
		discountAmount    pgtype.Numeric
		balanceBefore     pgtype.Numeric
		balanceAfter      pgtype.Numeric
		paymentDate       pgtype.Date
		method            string
		paymentType       string
		transactionID     pgtype.Int4
		notes             pgtype.Text
	)
	err := row.Scan(
		&p.ID, &p.WorkspaceID, &p.FinancingID, &p.AccountID, &installmentNumber, &paymentAmount,
		&principalAmount, &interestAmount, &discountAmount, &balanceBefore, &balanceAfter, &paymentDate,
		&method, &paymentType, &transactionID, &notes, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFinancingPaymentNotFound
		}
		return nil, err
	}
	p.InstallmentNumber = pgInt4ToInt32Ptr(installmentNumber)
	p.PaymentAmount = pgNumericToDecimal(paymentAmount)
	p.PrincipalAmount = pgNumericToDecimal(principalAmount)
	p.InterestAmount = pgNumericToDecimal(interestAmount)
	p.DiscountAmount = pgNumericToDecimal(discountAmount)
	p.BalanceBefore = pgNumericToDecimal(balanceBefore)
	p.BalanceAfter = pgNumericToDecimal(balanceAfter)
	p.PaymentDate = paymentDate.Time
	p.PaymentMethod = domain.PaymentMethod(method)
	p.PaymentType = domain.PaymentType(paymentType)
	p.TransactionID = pgInt4ToInt32Ptr(transactionID)
	p.Notes = pgTextToStringPtr(notes)
	return &p, nil
}
