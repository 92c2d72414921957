package service

import (
	"strings"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/util"
	"github.com/dafibh/fortuna/financing-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FinancingService handles financing contracts and their read-only projections
type FinancingService struct {
	financingRepo  domain.FinancingRepository
	creditorRepo   domain.CreditorRepository
	eventPublisher websocket.EventPublisher
}

// NewFinancingService creates a new FinancingService
func NewFinancingService(financingRepo domain.FinancingRepository, creditorRepo domain.CreditorRepository) *FinancingService {
	return &FinancingService{
		financingRepo: financingRepo,
		creditorRepo:  creditorRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *FinancingService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateFinancingInput contains input for creating a financing
type CreateFinancingInput struct {
	CreditorID         *int32
	Description        string
	TotalAmount        decimal.Decimal
	InterestRate       *decimal.Decimal // Optional, uses creditor default if nil
	TermMonths         int32
	AmortizationMethod domain.AmortizationMethod
	StartDate          time.Time
	Notes              *string
}

// CreateFinancing creates an active financing with its balance at the full principal
func (s *FinancingService) CreateFinancing(workspaceID int32, input CreateFinancingInput) (*domain.Financing, error) {
	interestRate := decimal.Zero
	if input.CreditorID != nil {
		creditor, err := s.creditorRepo.GetByID(workspaceID, *input.CreditorID)
		if err != nil {
			return nil, err
		}
		interestRate = creditor.DefaultInterestRate
	}
	if input.InterestRate != nil {
		interestRate = *input.InterestRate
	}

	financing := &domain.Financing{
		WorkspaceID:        workspaceID,
		CreditorID:         input.CreditorID,
		Description:        strings.TrimSpace(input.Description),
		TotalAmount:        input.TotalAmount,
		InterestRate:       interestRate,
		TermMonths:         input.TermMonths,
		AmortizationMethod: input.AmortizationMethod,
		StartDate:          util.DateOnly(input.StartDate),
		CurrentBalance:     input.TotalAmount,
		TotalPaid:          decimal.Zero,
		TotalInterestPaid:  decimal.Zero,
		Status:             domain.FinancingStatusActive,
		Notes:              input.Notes,
	}
	if err := financing.Validate(); err != nil {
		return nil, err
	}
	financing.MonthlyPayment = CalculateMonthlyPayment(financing.TotalAmount, financing.InterestRate, int(financing.TermMonths), financing.AmortizationMethod).Round(2)

	created, err := s.financingRepo.Create(financing)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("financing_id", created.ID).
		Str("method", string(created.AmortizationMethod)).
		Int32("term_months", created.TermMonths).
		Msg("Financing created")

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, websocket.FinancingCreated(created).ForFinancing(created.ID))
	}
	return created, nil
}

// GetFinancings returns the financings of a workspace, optionally filtered by status
func (s *FinancingService) GetFinancings(workspaceID int32, status *domain.FinancingStatus) ([]*domain.Financing, error) {
	if status != nil && *status != domain.FinancingStatusActive && *status != domain.FinancingStatusSettled {
		return nil, domain.ErrInvalidInput
	}
	return s.financingRepo.GetAllByWorkspace(workspaceID, status)
}

// GetFinancingByID returns one financing
func (s *FinancingService) GetFinancingByID(workspaceID int32, id int32) (*domain.Financing, error) {
	return s.financingRepo.GetByID(workspaceID, id)
}

// GetAmortizationTable returns the nominal schedule of a financing
func (s *FinancingService) GetAmortizationTable(workspaceID int32, id int32) (*domain.AmortizationTable, error) {
	financing, err := s.financingRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	return BuildAmortizationTable(financing)
}

// SimulateEarlyPaymentInput contains input for an early payment projection
type SimulateEarlyPaymentInput struct {
	ExtraAmount decimal.Decimal
	PaymentDate time.Time
	Preference  domain.EarlyPaymentPreference
}

// SimulateEarlyPayment projects the effect of an extra principal payment without recording it
func (s *FinancingService) SimulateEarlyPayment(workspaceID int32, id int32, input SimulateEarlyPaymentInput) (*domain.EarlyPaymentSimulation, error) {
	financing, err := s.financingRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = util.DateOnly(time.Now())
	}
	return SimulateEarlyPayment(financing, input.ExtraAmount, paymentDate, input.Preference)
}
