package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrFinancingNotFound           = errors.New("financing not found")
	ErrFinancingDescriptionEmpty   = errors.New("financing description is required")
	ErrFinancingDescriptionTooLong = errors.New("financing description must be 200 characters or less")
	ErrFinancingAmountInvalid      = errors.New("financing amount must be positive")
	ErrFinancingTermInvalid        = errors.New("financing term must be at least 1 installment")
	ErrInterestRateNegative        = errors.New("interest rate must be non-negative")
	ErrInvalidAmortizationMethod   = errors.New("amortization method must be 'SAC' or 'PRICE'")
	ErrFinancingSettled            = errors.New("financing is already settled")
)

const (
	MaxFinancingDescriptionLength = 200
	// MaxFinancingTerm bounds schedule length
	MaxFinancingTerm = 600
)

// AmortizationMethod selects how principal is repaid across installments
type AmortizationMethod string

const (
	// AmortizationSAC repays a constant principal quota each period
	AmortizationSAC AmortizationMethod = "SAC"
	// AmortizationPrice repays a constant installment each period (French method)
	AmortizationPrice AmortizationMethod = "PRICE"
)

// IsValid reports whether m is a supported method
func (m AmortizationMethod) IsValid() bool {
	return m == AmortizationSAC || m == AmortizationPrice
}

type FinancingStatus string

const (
	FinancingStatusActive  FinancingStatus = "active"
	FinancingStatusSettled FinancingStatus = "settled"
)

// Financing is an installment loan contract. TotalAmount, InterestRate, TermMonths,
// AmortizationMethod and StartDate are fixed at creation; the remaining fields are
// the aggregate derived from the payment ledger.
type Financing struct {
	ID                 int32              `json:"id"`
	WorkspaceID        int32              `json:"workspaceId"`
	CreditorID         *int32             `json:"creditorId,omitempty"`
	Description        string             `json:"description"`
	TotalAmount        decimal.Decimal    `json:"totalAmount"`
	InterestRate       decimal.Decimal    `json:"interestRate"`
	TermMonths         int32              `json:"termMonths"`
	AmortizationMethod AmortizationMethod `json:"amortizationMethod"`
	StartDate          time.Time          `json:"startDate"`
	MonthlyPayment     decimal.Decimal    `json:"monthlyPayment"`
	CurrentBalance     decimal.Decimal    `json:"currentBalance"`
	TotalPaid          decimal.Decimal    `json:"totalPaid"`
	TotalInterestPaid  decimal.Decimal    `json:"totalInterestPaid"`
	PaidInstallments   int32              `json:"paidInstallments"`
	Status             FinancingStatus    `json:"status"`
	Notes              *string            `json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Validate checks the static contract parameters
func (f *Financing) Validate() error {
	if f.Description == "" {
		return ErrFinancingDescriptionEmpty
	}
	if len(f.Description) > MaxFinancingDescriptionLength {
		return ErrFinancingDescriptionTooLong
	}
	return ValidateFinancingTerms(f.TotalAmount, f.InterestRate, int(f.TermMonths), f.AmortizationMethod)
}

// ValidateFinancingTerms checks the parameters an amortization schedule is computed from
func ValidateFinancingTerms(principal, rate decimal.Decimal, term int, method AmortizationMethod) error {
	if principal.LessThanOrEqual(decimal.Zero) {
		return ErrFinancingAmountInvalid
	}
	if !HasCentPrecision(principal) {
		return ErrAmountPrecision
	}
	if term < 1 || term > MaxFinancingTerm {
		return ErrFinancingTermInvalid
	}
	if rate.IsNegative() {
		return ErrInterestRateNegative
	}
	if !method.IsValid() {
		return ErrInvalidAmortizationMethod
	}
	return nil
}

// IsSettled reports whether the financing reached its terminal state
func (f *Financing) IsSettled() bool {
	return f.Status == FinancingStatusSettled
}

// RemainingInstallments is the number of scheduled installments not yet paid
func (f *Financing) RemainingInstallments() int32 {
	remaining := f.TermMonths - f.PaidInstallments
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ApplyPayment folds a single ledger row into the aggregate.
func (f *Financing) ApplyPayment(p *FinancingPayment) error {
	if f.IsSettled() {
		return ErrFinancingSettled
	}
	f.CurrentBalance = f.CurrentBalance.Sub(p.PrincipalAmount)
	f.TotalPaid = f.TotalPaid.Add(p.PaymentAmount)
	f.TotalInterestPaid = f.TotalInterestPaid.Add(p.InterestAmount)
	if p.InstallmentNumber != nil {
		f.PaidInstallments++
	}
	f.resolveStatus()
	return nil
}

// Recompute rebuilds the aggregate from the complete ledger of the financing.
// It is the authoritative path: any drift left by earlier writes is overwritten.
func (f *Financing) Recompute(ledger []*FinancingPayment) {
	totalPaid := decimal.Zero
	totalInterest := decimal.Zero
	totalPrincipal := decimal.Zero
	var installments int32
	for _, p := range ledger {
		totalPaid = totalPaid.Add(p.PaymentAmount)
		totalInterest = totalInterest.Add(p.InterestAmount)
		totalPrincipal = totalPrincipal.Add(p.PrincipalAmount)
		if p.InstallmentNumber != nil {
			installments++
		}
	}

	f.TotalPaid = totalPaid
	f.TotalInterestPaid = totalInterest
	f.PaidInstallments = installments
	f.CurrentBalance = f.TotalAmount.Sub(totalPrincipal)
	f.resolveStatus()
}

// resolveStatus moves an active financing to settled once fully paid.
// Settled is terminal.
func (f *Financing) resolveStatus() {
	if f.IsSettled() {
		return
	}
	if f.PaidInstallments >= f.TermMonths || f.CurrentBalance.LessThanOrEqual(decimal.Zero) {
		f.Status = FinancingStatusSettled
		return
	}
	f.Status = FinancingStatusActive
}

// FinancingRepository covers the plain reads and creation of financings.
// Aggregate writes go through FinancingLedger.
type FinancingRepository interface {
	Create(financing *Financing) (*Financing, error)
	GetByID(workspaceID int32, id int32) (*Financing, error)
	GetAllByWorkspace(workspaceID int32, status *FinancingStatus) ([]*Financing, error)
}
