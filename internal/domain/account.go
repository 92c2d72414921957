package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string
type AccountTemplate string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
)

const (
	TemplateBank       AccountTemplate = "bank"
	TemplateCash       AccountTemplate = "cash"
	TemplateEwallet    AccountTemplate = "ewallet"
	TemplateCreditCard AccountTemplate = "credit_card"
)

// TemplateToType maps account templates to their types
var TemplateToType = map[AccountTemplate]AccountType{
	TemplateBank:       AccountTypeAsset,
	TemplateCash:       AccountTypeAsset,
	TemplateEwallet:    AccountTypeAsset,
	TemplateCreditCard: AccountTypeLiability,
}

// Account is a balance-holding account that financing payments are debited from.
// Balance starts at InitialBalance and only moves through recorded payments.
type Account struct {
	ID             int32           `json:"id"`
	WorkspaceID    int32           `json:"workspaceId"`
	Name           string          `json:"name"`
	AccountType    AccountType     `json:"accountType"`
	Template       AccountTemplate `json:"template"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	DeletedAt      *time.Time      `json:"deletedAt,omitempty"`
}

// CanCover reports whether the account balance can pay amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

type AccountRepository interface {
	Create(account *Account) (*Account, error)
	GetByID(workspaceID int32, id int32) (*Account, error)
	GetAllByWorkspace(workspaceID int32, includeArchived bool) ([]*Account, error)
	Update(workspaceID int32, id int32, name string) (*Account, error)
	SoftDelete(workspaceID int32, id int32) error
}
