package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/dafibh/fortuna/financing-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest represents the create account request body
type CreateAccountRequest struct {
	Name           string `json:"name"`
	Template       string `json:"template"`
	InitialBalance string `json:"initialBalance,omitempty"`
}

// UpdateAccountRequest represents the update account request body
type UpdateAccountRequest struct {
	Name string `json:"name"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             int32   `json:"id"`
	WorkspaceID    int32   `json:"workspaceId"`
	Name           string  `json:"name"`
	AccountType    string  `json:"accountType"`
	Template       string  `json:"template"`
	InitialBalance string  `json:"initialBalance"`
	Balance        string  `json:"balance"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
	DeletedAt      *string `json:"deletedAt,omitempty"`
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var p amountParser
	initialBalance := p.orZero("initialBalance", req.InitialBalance)
	if p.failed() {
		return NewValidationError(c, "Invalid initial balance", p.errors)
	}

	account, err := h.accountService.CreateAccount(workspaceID, service.CreateAccountInput{
		Name:           req.Name,
		Template:       domain.AccountTemplate(req.Template),
		InitialBalance: initialBalance,
	})
	if err != nil {
		return respondError(c, err, workspaceID, "create account")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("account_id", account.ID).Str("name", account.Name).Msg("Account created")

	return c.JSON(http.StatusCreated, toAccountResponse(account))
}

// GetAccounts handles GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	includeArchived := c.QueryParam("includeArchived") == "true"

	accounts, err := h.accountService.GetAccounts(workspaceID, includeArchived)
	if err != nil {
		return respondError(c, err, workspaceID, "get accounts")
	}

	response := make([]AccountResponse, len(accounts))
	for i, account := range accounts {
		response[i] = toAccountResponse(account)
	}
	return c.JSON(http.StatusOK, response)
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	account, err := h.accountService.GetAccountByID(workspaceID, id)
	if err != nil {
		return respondError(c, err, workspaceID, "get account")
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// UpdateAccount handles PUT /api/v1/accounts/:id
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	account, err := h.accountService.RenameAccount(workspaceID, id, req.Name)
	if err != nil {
		return respondError(c, err, workspaceID, "update account")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("account_id", account.ID).Str("name", account.Name).Msg("Account updated")
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// DeleteAccount handles DELETE /api/v1/accounts/:id
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	if err := h.accountService.ArchiveAccount(workspaceID, id); err != nil {
		return respondError(c, err, workspaceID, "delete account")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("account_id", id).Msg("Account archived")
	return c.NoContent(http.StatusNoContent)
}

func toAccountResponse(account *domain.Account) AccountResponse {
	resp := AccountResponse{
		ID:             account.ID,
		WorkspaceID:    account.WorkspaceID,
		Name:           account.Name,
		AccountType:    string(account.AccountType),
		Template:       string(account.Template),
		InitialBalance: money(account.InitialBalance),
		Balance:        money(account.Balance),
		CreatedAt:      formatTimestamp(account.CreatedAt),
		UpdatedAt:      formatTimestamp(account.UpdatedAt),
	}
	if account.DeletedAt != nil {
		deletedAt := formatTimestamp(*account.DeletedAt)
		resp.DeletedAt = &deletedAt
	}
	return resp
}
