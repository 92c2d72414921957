package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/dafibh/fortuna/financing-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CreditorHandler handles creditor HTTP requests
type CreditorHandler struct {
	creditorService *service.CreditorService
}

// NewCreditorHandler creates a new CreditorHandler
func NewCreditorHandler(creditorService *service.CreditorService) *CreditorHandler {
	return &CreditorHandler{creditorService: creditorService}
}

// CreateCreditorRequest represents the create creditor request body.
// DefaultInterestRate is periodic, e.g. "0.0125" for 1.25% per installment.
type CreateCreditorRequest struct {
	Name                string `json:"name"`
	DefaultInterestRate string `json:"defaultInterestRate"`
}

// CreditorResponse represents a creditor in API responses
type CreditorResponse struct {
	ID                  int32  `json:"id"`
	Name                string `json:"name"`
	DefaultInterestRate string `json:"defaultInterestRate"`
	CreatedAt           string `json:"createdAt"`
	UpdatedAt           string `json:"updatedAt"`
}

// CreateCreditor handles POST /api/v1/creditors
func (h *CreditorHandler) CreateCreditor(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateCreditorRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var p amountParser
	rate := p.rate("defaultInterestRate", req.DefaultInterestRate)
	if p.failed() {
		return NewValidationError(c, "Validation failed", p.errors)
	}

	creditor, err := h.creditorService.CreateCreditor(workspaceID, service.CreateCreditorInput{
		Name:                req.Name,
		DefaultInterestRate: rate,
	})
	if err != nil {
		return respondError(c, err, workspaceID, "create creditor")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("creditor_id", creditor.ID).Msg("Creditor created")
	return c.JSON(http.StatusCreated, toCreditorResponse(creditor))
}

// GetCreditors handles GET /api/v1/creditors
func (h *CreditorHandler) GetCreditors(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	creditors, err := h.creditorService.GetCreditors(workspaceID)
	if err != nil {
		return respondError(c, err, workspaceID, "get creditors")
	}

	response := make([]CreditorResponse, len(creditors))
	for i, creditor := range creditors {
		response[i] = toCreditorResponse(creditor)
	}
	return c.JSON(http.StatusOK, response)
}

// GetCreditor handles GET /api/v1/creditors/:id
func (h *CreditorHandler) GetCreditor(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid creditor ID", nil)
	}

	creditor, err := h.creditorService.GetCreditorByID(workspaceID, id)
	if err != nil {
		return respondError(c, err, workspaceID, "get creditor")
	}
	return c.JSON(http.StatusOK, toCreditorResponse(creditor))
}

func toCreditorResponse(creditor *domain.Creditor) CreditorResponse {
	return CreditorResponse{
		ID:                  creditor.ID,
		Name:                creditor.Name,
		DefaultInterestRate: creditor.DefaultInterestRate.String(),
		CreatedAt:           formatTimestamp(creditor.CreatedAt),
		UpdatedAt:           formatTimestamp(creditor.UpdatedAt),
	}
}
