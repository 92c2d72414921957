package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/dafibh/fortuna/financing-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// FinancingHandler handles financing contracts and their projections
type FinancingHandler struct {
	financingService *service.FinancingService
}

// NewFinancingHandler creates a new FinancingHandler
func NewFinancingHandler(financingService *service.FinancingService) *FinancingHandler {
	return &FinancingHandler{financingService: financingService}
}

// CreateFinancingRequest represents the create financing request body.
// InterestRate is periodic and falls back to the creditor default when omitted.
type CreateFinancingRequest struct {
	CreditorID         *int32  `json:"creditorId,omitempty"`
	Description        string  `json:"description"`
	TotalAmount        string  `json:"totalAmount"`
	InterestRate       string  `json:"interestRate,omitempty"`
	TermMonths         int32   `json:"termMonths"`
	AmortizationMethod string  `json:"amortizationMethod"`
	StartDate          string  `json:"startDate"`
	Notes              *string `json:"notes,omitempty"`
}

// SimulateEarlyPaymentRequest represents the early payment simulation body
type SimulateEarlyPaymentRequest struct {
	ExtraAmount string `json:"extraAmount"`
	PaymentDate string `json:"paymentDate,omitempty"`
	Preference  string `json:"preference"`
}

// FinancingResponse represents a financing in API responses
type FinancingResponse struct {
	ID                    int32   `json:"id"`
	CreditorID            *int32  `json:"creditorId,omitempty"`
	Description           string  `json:"description"`
	TotalAmount           string  `json:"totalAmount"`
	InterestRate          string  `json:"interestRate"`
	TermMonths            int32   `json:"termMonths"`
	AmortizationMethod    string  `json:"amortizationMethod"`
	StartDate             string  `json:"startDate"`
	MonthlyPayment        string  `json:"monthlyPayment"`
	CurrentBalance        string  `json:"currentBalance"`
	TotalPaid             string  `json:"totalPaid"`
	TotalInterestPaid     string  `json:"totalInterestPaid"`
	PaidInstallments      int32   `json:"paidInstallments"`
	RemainingInstallments int32   `json:"remainingInstallments"`
	Status                string  `json:"status"`
	Notes                 *string `json:"notes,omitempty"`
	CreatedAt             string  `json:"createdAt"`
	UpdatedAt             string  `json:"updatedAt"`
}

// AmortizationRowResponse represents one installment of a schedule
type AmortizationRowResponse struct {
	InstallmentNumber int32  `json:"installmentNumber"`
	DueDate           string `json:"dueDate"`
	Payment           string `json:"payment"`
	Principal         string `json:"principal"`
	Interest          string `json:"interest"`
	Balance           string `json:"balance"`
}

// AmortizationTableResponse represents a full nominal schedule
type AmortizationTableResponse struct {
	FinancingID        int32                     `json:"financingId"`
	AmortizationMethod string                    `json:"amortizationMethod"`
	Principal          string                    `json:"principal"`
	InterestRate       string                    `json:"interestRate"`
	TermMonths         int32                     `json:"termMonths"`
	PaidInstallments   int32                     `json:"paidInstallments"`
	TotalPayment       string                    `json:"totalPayment"`
	TotalInterest      string                    `json:"totalInterest"`
	Rows               []AmortizationRowResponse `json:"rows"`
}

// EarlyPaymentSimulationResponse compares the schedule with and without the extra payment
type EarlyPaymentSimulationResponse struct {
	FinancingID                   int32                     `json:"financingId"`
	Preference                    string                    `json:"preference"`
	PaymentDate                   string                    `json:"paymentDate"`
	ExtraAmount                   string                    `json:"extraAmount"`
	CurrentBalance                string                    `json:"currentBalance"`
	NewBalance                    string                    `json:"newBalance"`
	OriginalRemainingInstallments int32                     `json:"originalRemainingInstallments"`
	NewRemainingInstallments      int32                     `json:"newRemainingInstallments"`
	InstallmentsSaved             int32                     `json:"installmentsSaved"`
	OriginalInstallment           string                    `json:"originalInstallment"`
	NewInstallment                string                    `json:"newInstallment"`
	OriginalRemainingInterest     string                    `json:"originalRemainingInterest"`
	NewRemainingInterest          string                    `json:"newRemainingInterest"`
	InterestSavings               string                    `json:"interestSavings"`
	Schedule                      []AmortizationRowResponse `json:"schedule"`
}

// CreateFinancing handles POST /api/v1/financings
func (h *FinancingHandler) CreateFinancing(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateFinancingRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var p amountParser
	totalAmount := p.required("totalAmount", req.TotalAmount)
	var interestRate *decimal.Decimal
	if req.InterestRate != "" {
		rate := p.rate("interestRate", req.InterestRate)
		interestRate = &rate
	}
	startDate := p.date("startDate", req.StartDate, false)
	if p.failed() {
		return NewValidationError(c, "Validation failed", p.errors)
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}

	financing, err := h.financingService.CreateFinancing(workspaceID, service.CreateFinancingInput{
		CreditorID:         req.CreditorID,
		Description:        req.Description,
		TotalAmount:        totalAmount,
		InterestRate:       interestRate,
		TermMonths:         req.TermMonths,
		AmortizationMethod: domain.AmortizationMethod(req.AmortizationMethod),
		StartDate:          startDate,
		Notes:              req.Notes,
	})
	if err != nil {
		return respondError(c, err, workspaceID, "create financing")
	}

	return c.JSON(http.StatusCreated, toFinancingResponse(financing))
}

// GetFinancings handles GET /api/v1/financings?status=active|settled
func (h *FinancingHandler) GetFinancings(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var status *domain.FinancingStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := domain.FinancingStatus(raw)
		status = &s
	}

	financings, err := h.financingService.GetFinancings(workspaceID, status)
	if err != nil {
		return respondError(c, err, workspaceID, "get financings")
	}

	response := make([]FinancingResponse, len(financings))
	for i, financing := range financings {
		response[i] = toFinancingResponse(financing)
	}
	return c.JSON(http.StatusOK, response)
}

// GetFinancing handles GET /api/v1/financings/:id
func (h *FinancingHandler) GetFinancing(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	financing, err := h.financingService.GetFinancingByID(workspaceID, id)
	if err != nil {
		return respondError(c, err, workspaceID, "get financing")
	}
	return c.JSON(http.StatusOK, toFinancingResponse(financing))
}

// GetAmortizationTable handles GET /api/v1/financings/:id/amortization
func (h *FinancingHandler) GetAmortizationTable(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	table, err := h.financingService.GetAmortizationTable(workspaceID, id)
	if err != nil {
		return respondError(c, err, workspaceID, "build amortization table")
	}

	return c.JSON(http.StatusOK, AmortizationTableResponse{
		FinancingID:        table.FinancingID,
		AmortizationMethod: string(table.AmortizationMethod),
		Principal:          money(table.Principal),
		InterestRate:       table.InterestRate.String(),
		TermMonths:         table.TermMonths,
		PaidInstallments:   table.PaidInstallments,
		TotalPayment:       money(table.TotalPayment),
		TotalInterest:      money(table.TotalInterest),
		Rows:               toRowResponses(table.Rows),
	})
}

// SimulateEarlyPayment handles POST /api/v1/financings/:id/simulate-early-payment
func (h *FinancingHandler) SimulateEarlyPayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	var req SimulateEarlyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var p amountParser
	extra := p.required("extraAmount", req.ExtraAmount)
	paymentDate := p.date("paymentDate", req.PaymentDate, false)
	if p.failed() {
		return NewValidationError(c, "Validation failed", p.errors)
	}

	sim, err := h.financingService.SimulateEarlyPayment(workspaceID, id, service.SimulateEarlyPaymentInput{
		ExtraAmount: extra,
		PaymentDate: paymentDate,
		Preference:  domain.EarlyPaymentPreference(req.Preference),
	})
	if err != nil {
		return respondError(c, err, workspaceID, "simulate early payment")
	}

	return c.JSON(http.StatusOK, EarlyPaymentSimulationResponse{
		FinancingID:                   sim.FinancingID,
		Preference:                    string(sim.Preference),
		PaymentDate:                   formatDate(sim.PaymentDate),
		ExtraAmount:                   money(sim.ExtraAmount),
		CurrentBalance:                money(sim.CurrentBalance),
		NewBalance:                    money(sim.NewBalance),
		OriginalRemainingInstallments: sim.OriginalRemainingInstallments,
		NewRemainingInstallments:      sim.NewRemainingInstallments,
		InstallmentsSaved:             sim.OriginalRemainingInstallments - sim.NewRemainingInstallments,
		OriginalInstallment:           money(sim.OriginalInstallment),
		NewInstallment:                money(sim.NewInstallment),
		OriginalRemainingInterest:     money(sim.OriginalRemainingInterest),
		NewRemainingInterest:          money(sim.NewRemainingInterest),
		InterestSavings:               money(sim.InterestSavings),
		Schedule:                      toRowResponses(sim.Schedule),
	})
}

func toFinancingResponse(f *domain.Financing) FinancingResponse {
	return FinancingResponse{
		ID:                    f.ID,
		CreditorID:            f.CreditorID,
		Description:           f.Description,
		TotalAmount:           money(f.TotalAmount),
		InterestRate:          f.InterestRate.String(),
		TermMonths:            f.TermMonths,
		AmortizationMethod:    string(f.AmortizationMethod),
		StartDate:             formatDate(f.StartDate),
		MonthlyPayment:        money(f.MonthlyPayment),
		CurrentBalance:        money(f.CurrentBalance),
		TotalPaid:             money(f.TotalPaid),
		TotalInterestPaid:     money(f.TotalInterestPaid),
		PaidInstallments:      f.PaidInstallments,
		RemainingInstallments: f.RemainingInstallments(),
		Status:                string(f.Status),
		Notes:                 f.Notes,
		CreatedAt:             formatTimestamp(f.CreatedAt),
		UpdatedAt:             formatTimestamp(f.UpdatedAt),
	}
}

// toRowResponses rounds each full-precision row for display
func toRowResponses(rows []domain.AmortizationRow) []AmortizationRowResponse {
	out := make([]AmortizationRowResponse, len(rows))
	for i, row := range rows {
		out[i] = AmortizationRowResponse{
			InstallmentNumber: row.InstallmentNumber,
			DueDate:           formatDate(row.DueDate),
			Payment:           money(row.Payment),
			Principal:         money(row.Principal),
			Interest:          money(row.Interest),
			Balance:           money(row.Balance),
		}
	}
	return out
}
