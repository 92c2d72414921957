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

const financingColumns = `id, workspace_id, creditor_id, description, total_amount, interest_rate, term_months,
	amortization_method, start_date, monthly_payment, current_balance, total_paid, total_interest_paid,
	paid_installments, status, notes, created_at, updated_at`

// FinancingRepository implements domain.FinancingRepository using PostgreSQL
type FinancingRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
}

// NewFinancingRepository creates a new FinancingRepository
func NewFinancingRepository(pool *pgxpool.Pool) *FinancingRepository {
	return &FinancingRepository{
		pool:    pool,
		queries: New(pool),
	}
}

// Create inserts a new financing
func (r *FinancingRepository) Create(financing *domain.Financing) (*domain.Financing, error) {
	amounts, err := numericArgs(
		financing.TotalAmount,
		financing.InterestRate,
		financing.MonthlyPayment,
		financing.CurrentBalance,
		financing.TotalPaid,
		financing.TotalInterestPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid financing amount: %w", err)
	}

	row := r.queries.db.QueryRow(context.Background(), `
		INSERT INTO financings (
			workspace_id, creditor_id, description, total_amount, interest_rate, term_months,
			amortization_method, start_date, monthly_payment, current_balance, total_paid,
			total_interest_paid, paid_installments, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+financingColumns,
		financing.WorkspaceID,
		int32PtrToPgInt4(financing.CreditorID),
		financing.Description,
		amounts[0],
		amounts[1],
		financing.TermMonths,
		string(financing.AmortizationMethod),
		timeToPgDate(financing.StartDate),
		amounts[2],
		amounts[3],
		amounts[4],
		amounts[5],
		financing.PaidInstallments,
		string(financing.Status),
		stringPtrToPgText(financing.Notes),
	)
	return scanFinancing(row)
}

// GetByID retrieves a financing by ID within a workspace
func (r *FinancingRepository) GetByID(workspaceID int32, id int32) (*domain.Financing, error) {
	return r.queries.getFinancing(context.Background(), workspaceID, id, false)
}

// GetAllByWorkspace retrieves the financings of a workspace, newest first
func (r *FinancingRepository) GetAllByWorkspace(workspaceID int32, status *domain.FinancingStatus) ([]*domain.Financing, error) {
	var pgStatus pgtype.Text
	if status != nil {
		pgStatus = pgtype.Text{String: string(*status), Valid: true}
	}

	rows, err := r.queries.db.Query(context.Background(), `
		SELECT `+financingColumns+` FROM financings
		WHERE workspace_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC`,
		workspaceID, pgStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	financings := []*domain.Financing{}
	for rows.Next() {
		financing, err := scanFinancing(rows)
		if err != nil {
			return nil, err
		}
		financings = append(financings, financing)
	}
	return financings, rows.Err()
}

// getFinancing loads a financing, optionally locking the row for the rest of the transaction
func (q *Queries) getFinancing(ctx context.Context, workspaceID int32, id int32, forUpdate bool) (*domain.Financing, error) {
	query := `SELECT ` + financingColumns + ` FROM financings WHERE workspace_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanFinancing(q.db.QueryRow(ctx, query, workspaceID, id))
}

// updateFinancingAggregate persists the derived fields of a financing
func (q *Queries) updateFinancingAggregate(ctx context.Context, financing *domain.Financing) (*domain.Financing, error) {
	amounts, err := numericArgs(financing.CurrentBalance, financing.TotalPaid, financing.TotalInterestPaid)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregate amount: %w", err)
	}
	row := q.db.QueryRow(ctx, `
		UPDATE financings
		SET current_balance = $3,
		    total_paid = $4,
		    total_interest_paid = $5,
		    paid_installments = $6,
		    status = $7,
		    updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2
		RETURNING `+financingColumns,
		financing.WorkspaceID, financing.ID, amounts[0], amounts[1], amounts[2],
		financing.PaidInstallments, string(financing.Status))
	return scanFinancing(row)
}

func scanFinancing(row pgx.Row) (*domain.Financing, error) {
	var (
		f                 domain.Financing
		creditorID        pgtype.Int4
		totalAmount       pgtype.Numeric
		interestRate      pgtype.Numeric
		method            string
		startDate         pgtype.Date
		monthlyPayment    pgtype.Numeric
		currentBalance    pgtype.Numeric
		totalPaid         pgtype.Numeric
		totalInterestPaid pgtype.Numeric
		status            string
		notes             pgtype.Text
	)
	err := row.Scan(
		&f.ID, &f.WorkspaceID, &creditorID, &f.Description, &totalAmount, &interestRate, &f.TermMonths,
		&method, &startDate, &monthlyPayment, &currentBalance, &totalPaid, &totalInterestPaid,
		&f.PaidInstallments, &status, &notes, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFinancingNotFound
		}
		return nil, err
	}
	f.CreditorID = pgInt4ToInt32Ptr(creditorID)
	f.TotalAmount = pgNumericToDecimal(totalAmount)
	f.InterestRate = pgNumericToDecimal(interestRate)
	f.AmortizationMethod = domain.AmortizationMethod(method)
	f.StartDate = startDate.Time
	f.MonthlyPayment = pgNumericToDecimal(monthlyPayment)
	f.CurrentBalance = pgNumericToDecimal(currentBalance)
	f.TotalPaid = pgNumericToDecimal(totalPaid)
	f.TotalInterestPaid = pgNumericToDecimal(totalInterestPaid)
	f.Status = domain.FinancingStatus(status)
	f.Notes = pgTextToStringPtr(notes)
	return &f, nil
}
