package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrAmountPrecision     = errors.New("amounts must not have more than 2 decimal places")
)

// HasCentPrecision reports whether d is representable in a NUMERIC(15,2) column
// without rounding
func HasCentPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

const (
	MaxTransactionNameLength  = 255
	MaxTransactionNotesLength = 1000
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransactionSourceFinancing marks transactions generated by the financing ledger
const TransactionSourceFinancing = "financing_payment"

// Transaction is a generic financial movement on an account. Financing payments
// generate one expense transaction each, linked through FinancingPaymentID.
type Transaction struct {
	ID                 int32           `json:"id"`
	WorkspaceID        int32           `json:"workspaceId"`
	AccountID          int32           `json:"accountId"`
	Name               string          `json:"name"`
	Amount             decimal.Decimal `json:"amount"`
	Type               TransactionType `json:"type"`
	TransactionDate    time.Time       `json:"transactionDate"`
	IsPaid             bool            `json:"isPaid"`
	Notes              *string         `json:"notes,omitempty"`
	CategoryID         *int32          `json:"categoryId,omitempty"`
	FinancingPaymentID *int32          `json:"financingPaymentId,omitempty"`
	Source             string          `json:"source"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	DeletedAt          *time.Time      `json:"deletedAt,omitempty"`
}

// TransactionRepository reads the expense rows generated by financing payments
type TransactionRepository interface {
	GetByFinancingPaymentID(workspaceID int32, paymentID int32) (*Transaction, error)
}
