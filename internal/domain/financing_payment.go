package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrFinancingPaymentNotFound   = errors.New("financing payment not found")
	ErrInvalidInstallmentNumber   = errors.New("installment number must be between 1 and the financing term")
	ErrInstallmentAlreadyPaid     = errors.New("installment has already been paid")
	ErrPaymentAmountInvalid       = errors.New("payment amount must be positive")
	ErrPaymentSplitInvalid        = errors.New("principal and interest amounts must be non-negative")
	ErrDiscountInvalid            = errors.New("discount amount must be non-negative and lower than the payment amount")
	ErrPaymentSplitMismatch       = errors.New("payment amount must equal principal plus interest plus discount")
	ErrInvalidPaymentMethod       = errors.New("invalid payment method")
	ErrInvalidPaymentType         = errors.New("payment type must be 'scheduled', 'partial' or 'early'")
	ErrPaymentExceedsBalance      = errors.New("principal amount exceeds the financing balance")
	ErrInsufficientAccountBalance = errors.New("insufficient account balance")
	ErrUnderpayment               = errors.New("payment amount is lower than the scheduled installment")
	ErrEarlyPaymentTooLarge       = errors.New("early payment must be lower than the current balance")
	ErrPaymentHasTransaction      = errors.New("payment has a linked transaction and cannot be deleted")
)

type PaymentType string

const (
	PaymentTypeScheduled PaymentType = "scheduled"
	PaymentTypePartial   PaymentType = "partial"
	PaymentTypeEarly     PaymentType = "early"
)

// IsValid reports whether t is a known payment type
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeScheduled || t == PaymentTypePartial || t == PaymentTypeEarly
}

type PaymentMethod string

const (
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCash           PaymentMethod = "cash"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodAutomaticDebit PaymentMethod = "automatic_debit"
	PaymentMethodOther          PaymentMethod = "other"
)

var validPaymentMethods = map[PaymentMethod]bool{
	PaymentMethodBankTransfer:   true,
	PaymentMethodCash:           true,
	PaymentMethodDebitCard:      true,
	PaymentMethodCreditCard:     true,
	PaymentMethodAutomaticDebit: true,
	PaymentMethodOther:          true,
}

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	return validPaymentMethods[m]
}

// FinancingPayment is one immutable ledger row recording an actual payment.
// InstallmentNumber is nil for early payments, which do not consume an installment.
type FinancingPayment struct {
	ID                int32           `json:"id"`
	WorkspaceID       int32           `json:"workspaceId"`
	FinancingID       int32           `json:"financingId"`
	AccountID         int32           `json:"accountId"`
	InstallmentNumber *int32          `json:"installmentNumber"`
	PaymentAmount     decimal.Decimal `json:"paymentAmount"`
	PrincipalAmount   decimal.Decimal `json:"principalAmount"`
	InterestAmount    decimal.Decimal `json:"interestAmount"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	BalanceBefore     decimal.Decimal `json:"balanceBefore"`
	BalanceAfter      decimal.Decimal `json:"balanceAfter"`
	PaymentDate       time.Time       `json:"paymentDate"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	PaymentType       PaymentType     `json:"paymentType"`
	TransactionID     *int32          `json:"transactionId,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Validate checks the amounts and enums of a payment before it is recorded.
// Every amount is whole cents and the split accounts for the full payment.
func (p *FinancingPayment) Validate() error {
	if p.PaymentAmount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentAmountInvalid
	}
	for _, amount := range []decimal.Decimal{p.PaymentAmount, p.PrincipalAmount, p.InterestAmount, p.DiscountAmount} {
		if !HasCentPrecision(amount) {
			return ErrAmountPrecision
		}
	}
	if p.PrincipalAmount.IsNegative() || p.InterestAmount.IsNegative() {
		return ErrPaymentSplitInvalid
	}
	if p.DiscountAmount.IsNegative() {
		return ErrDiscountInvalid
	}
	if !p.PaymentAmount.Equal(p.PrincipalAmount.Add(p.InterestAmount).Add(p.DiscountAmount)) {
		return ErrPaymentSplitMismatch
	}
	if !p.PaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod
	}
	if !p.PaymentType.IsValid() {
		return ErrInvalidPaymentType
	}
	if p.InstallmentNumber != nil && *p.InstallmentNumber < 1 {
		return ErrInvalidInstallmentNumber
	}
	return nil
}

// PaymentResult is returned by every ledger mutation
type PaymentResult struct {
	Payment     *FinancingPayment `json:"payment"`
	Transaction *Transaction      `json:"transaction"`
	Financing   *Financing        `json:"financing"`
}

// FinancingPaymentFilters narrows payment listings
type FinancingPaymentFilters struct {
	FinancingID *int32
	AccountID   *int32
	PaymentType *PaymentType
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int32
	PageSize    int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// FinancingPaymentStatistics summarises every row matching the filters, not just the page
type FinancingPaymentStatistics struct {
	TotalPayments  int64           `json:"totalPayments"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	TotalPrincipal decimal.Decimal `json:"totalPrincipal"`
	TotalInterest  decimal.Decimal `json:"totalInterest"`
	TotalDiscount  decimal.Decimal `json:"totalDiscount"`
	ScheduledCount int64           `json:"scheduledCount"`
	PartialCount   int64           `json:"partialCount"`
	EarlyCount     int64           `json:"earlyCount"`
}

type PaginatedFinancingPayments struct {
	Data       []*FinancingPayment        `json:"data"`
	Page       int32                      `json:"page"`
	PageSize   int32                      `json:"pageSize"`
	TotalItems int64                      `json:"totalItems"`
	TotalPages int32                      `json:"totalPages"`
	Statistics FinancingPaymentStatistics `json:"statistics"`
}

// FinancingPaymentRepository serves read-only projections of the ledger
type FinancingPaymentRepository interface {
	GetByID(workspaceID int32, id int32) (*FinancingPayment, error)
	GetByFinancingID(workspaceID int32, financingID int32) ([]*FinancingPayment, error)
	List(workspaceID int32, filters *FinancingPaymentFilters) (*PaginatedFinancingPayments, error)
}

// FinancingLedgerTx is the view of storage available inside one atomic unit.
// Every method runs on the same underlying database transaction.
type FinancingLedgerTx interface {
	// GetFinancingForUpdate loads and locks the financing row
	GetFinancingForUpdate(ctx context.Context, workspaceID int32, id int32) (*Financing, error)
	// GetAccountForUpdate loads and locks the account row
	GetAccountForUpdate(ctx context.Context, workspaceID int32, id int32) (*Account, error)
	GetCategory(ctx context.Context, workspaceID int32, id int32) (*BudgetCategory, error)
	InstallmentPaid(ctx context.Context, financingID int32, installmentNumber int32) (bool, error)
	CreatePayment(ctx context.Context, payment *FinancingPayment) (*FinancingPayment, error)
	CreateTransaction(ctx context.Context, transaction *Transaction) (*Transaction, error)
	LinkTransaction(ctx context.Context, paymentID int32, transactionID int32) error
	DebitAccount(ctx context.Context, workspaceID int32, accountID int32, amount decimal.Decimal) (*Account, error)
	ListPayments(ctx context.Context, financingID int32) ([]*FinancingPayment, error)
	UpdateFinancingAggregate(ctx context.Context, financing *Financing) (*Financing, error)
	GetPaymentForUpdate(ctx context.Context, workspaceID int32, id int32) (*FinancingPayment, error)
	DeletePayment(ctx context.Context, id int32) error
}

// FinancingLedger runs fn as a single atomic unit. fn's error (or a commit
// failure) rolls back every write made through tx.
type FinancingLedger interface {
	WithinTx(ctx context.Context, fn func(tx FinancingLedgerTx) error) error
}
