package service

import (
	"strings"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// CreditorService handles the lenders financings are signed with
type CreditorService struct {
	creditorRepo domain.CreditorRepository
}

// NewCreditorService creates a new CreditorService
func NewCreditorService(creditorRepo domain.CreditorRepository) *CreditorService {
	return &CreditorService{creditorRepo: creditorRepo}
}

// CreateCreditorInput contains input for creating a creditor
type CreateCreditorInput struct {
	Name                string
	DefaultInterestRate decimal.Decimal
}

// CreateCreditor creates a creditor. The default rate is periodic, not annual.
func (s *CreditorService) CreateCreditor(workspaceID int32, input CreateCreditorInput) (*domain.Creditor, error) {
	creditor := &domain.Creditor{
		WorkspaceID:         workspaceID,
		Name:                strings.TrimSpace(input.Name),
		DefaultInterestRate: input.DefaultInterestRate,
	}
	if err := creditor.Validate(); err != nil {
		return nil, err
	}
	return s.creditorRepo.Create(creditor)
}

// GetCreditors retrieves all creditors for a workspace
func (s *CreditorService) GetCreditors(workspaceID int32) ([]*domain.Creditor, error) {
	return s.creditorRepo.GetAllByWorkspace(workspaceID)
}

// GetCreditorByID retrieves a creditor by ID within a workspace
func (s *CreditorService) GetCreditorByID(workspaceID int32, id int32) (*domain.Creditor, error) {
	return s.creditorRepo.GetByID(workspaceID, id)
}
