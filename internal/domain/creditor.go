package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCreditorNotFound    = errors.New("creditor not found")
	ErrCreditorNameEmpty   = errors.New("creditor name is required")
	ErrCreditorNameTooLong = errors.New("creditor name must be 100 characters or less")
)

const MaxCreditorNameLength = 100

// Creditor is the bank or lender a financing contract is signed with.
// DefaultInterestRate is a periodic rate (0.01 = 1% per installment period).
type Creditor struct {
	ID                  int32           `json:"id"`
	WorkspaceID         int32           `json:"workspaceId"`
	Name                string          `json:"name"`
	DefaultInterestRate decimal.Decimal `json:"defaultInterestRate"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	DeletedAt           *time.Time      `json:"deletedAt,omitempty"`
}

func (c *Creditor) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrCreditorNameEmpty
	}
	if len(name) > MaxCreditorNameLength {
		return ErrCreditorNameTooLong
	}
	if c.DefaultInterestRate.IsNegative() {
		return ErrInterestRateNegative
	}
	return nil
}

type CreditorRepository interface {
	Create(creditor *Creditor) (*Creditor, error)
	GetByID(workspaceID int32, id int32) (*Creditor, error)
	GetAllByWorkspace(workspaceID int32) ([]*Creditor, error)
}
