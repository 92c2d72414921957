package service

import (
	"strings"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountService manages the accounts financing payments are debited from
type AccountService struct {
	accountRepo domain.AccountRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo domain.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

// CreateAccountInput holds the input for creating an account
type CreateAccountInput struct {
	Name           string
	Template       domain.AccountTemplate
	InitialBalance decimal.Decimal
}

// CreateAccount creates an account whose balance starts at the initial balance
func (s *AccountService) CreateAccount(workspaceID int32, input CreateAccountInput) (*domain.Account, error) {
	name, err := validateAccountName(input.Name)
	if err != nil {
		return nil, err
	}

	accountType, ok := domain.TemplateToType[input.Template]
	if !ok {
		return nil, domain.ErrInvalidTemplate
	}
	if accountType == domain.AccountTypeAsset && input.InitialBalance.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	return s.accountRepo.Create(&domain.Account{
		WorkspaceID:    workspaceID,
		Name:           name,
		AccountType:    accountType,
		Template:       input.Template,
		InitialBalance: input.InitialBalance,
		Balance:        input.InitialBalance,
	})
}

// GetAccounts retrieves all accounts for a workspace
func (s *AccountService) GetAccounts(workspaceID int32, includeArchived bool) ([]*domain.Account, error) {
	return s.accountRepo.GetAllByWorkspace(workspaceID, includeArchived)
}

// GetAccountByID retrieves an account by ID within a workspace
func (s *AccountService) GetAccountByID(workspaceID int32, id int32) (*domain.Account, error) {
	return s.accountRepo.GetByID(workspaceID, id)
}

// RenameAccount changes an account's name. Balances only move through payments.
func (s *AccountService) RenameAccount(workspaceID int32, id int32, name string) (*domain.Account, error) {
	name, err := validateAccountName(name)
	if err != nil {
		return nil, err
	}
	return s.accountRepo.Update(workspaceID, id, name)
}

// ArchiveAccount soft-deletes an account. Ledger rows referencing it are kept.
func (s *AccountService) ArchiveAccount(workspaceID int32, id int32) error {
	return s.accountRepo.SoftDelete(workspaceID, id)
}

func validateAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return "", domain.ErrNameTooLong
	}
	return name, nil
}
