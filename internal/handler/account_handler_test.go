package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/service"
	"github.com/dafibh/fortuna/financing-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func newAccountHandler() (*AccountHandler, *testutil.MockAccountRepository) {
	accountRepo := testutil.NewMockAccountRepository()
	return NewAccountHandler(service.NewAccountService(accountRepo)), accountRepo
}

func TestCreateAccount_Success_BankAccount(t *testing.T) {
	e := echo.New()
	handler, _ := newAccountHandler()

	reqBody := `{"name": "My Savings", "template": "bank", "initialBalance": "1000.50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContextWithWorkspace(c, "auth0|test", "test@example.com", "Test User", "", 1)

	if err := handler.CreateAccount(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Name != "My Savings" {
		t.Errorf("Expected name 'My Savings', got %s", response.Name)
	}
	if response.AccountType != "asset" {
		t.Errorf("Expected account type 'asset', got %s", response.AccountType)
	}
	if response.InitialBalance != "1000.50" {
		t.Errorf("Expected initial balance '1000.50', got %s", response.InitialBalance)
	}
	if response.Balance != "1000.50" {
		t.Errorf("Expected balance to start at '1000.50', got %s", response.Balance)
	}
}

func TestCreateAccount_MissingWorkspaceID(t *testing.T) {
	e := echo.New()
	handler, _ := newAccountHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{"name": "x", "template": "bank"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", "test@example.com", "Test User", "")

	if err := handler.CreateAccount(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCreateAccount_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing name", `{"name": "", "template": "bank"}`, "name"},
		{"invalid template", `{"name": "Wallet", "template": "piggy"}`, "template"},
		{"invalid balance", `{"name": "Wallet", "template": "cash", "initialBalance": "abc"}`, "initialBalance"},
		{"negative asset balance", `{"name": "Wallet", "template": "cash", "initialBalance": "-5"}`, "initialBalance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			handler, accountRepo := newAccountHandler()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			setupAuthContextWithWorkspace(c, "auth0|test", "test@example.com", "Test User", "", 1)

			if err := handler.CreateAccount(c); err != nil {
				t.Fatalf("Expected JSON response, got error: %v", err)
			}

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}

			var problemDetails ProblemDetails
			if err := json.Unmarshal(rec.Body.Bytes(), &problemDetails); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if len(problemDetails.Errors) == 0 || problemDetails.Errors[0].Field != tt.wantField {
				t.Errorf("Expected error on field %s, got %v", tt.wantField, problemDetails.Errors)
			}
			if len(accountRepo.Accounts) != 0 {
				t.Errorf("Expected no account created, got %d", len(accountRepo.Accounts))
			}
		})
	}
}

func TestGetAccounts_WorkspaceIsolation(t *testing.T) {
	e := echo.New()
	handler, accountRepo := newAccountHandler()
	accountRepo.AddAccount(&domain.Account{ID: 1, WorkspaceID: 1, Name: "Mine", Balance: decimal.NewFromInt(10)})
	accountRepo.AddAccount(&domain.Account{ID: 2, WorkspaceID: 2, Name: "Theirs"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContextWithWorkspace(c, "auth0|test", "test@example.com", "Test User", "", 1)

	if err := handler.GetAccounts(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response []AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response) != 1 {
		t.Fatalf("Expected 1 account, got %d", len(response))
	}
	if response[0].Name != "Mine" || response[0].Balance != "10.00" {
		t.Errorf("Expected 'Mine' with balance 10.00, got %s %s", response[0].Name, response[0].Balance)
	}
}

func TestGetAccount_OtherWorkspaceIsNotFound(t *testing.T) {
	e := echo.New()
	handler, accountRepo := newAccountHandler()
	accountRepo.AddAccount(&domain.Account{ID: 4, WorkspaceID: 2, Name: "Theirs"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/4", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("4")
	setupAuthContextWithWorkspace(c, "auth0|test", "test@example.com", "Test User", "", 1)

	if err := handler.GetAccount(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestUpdateAccount_Renames(t *testing.T) {
	e := echo.New()
	handler, accountRepo := newAccountHandler()
	accountRepo.AddAccount(&domain.Account{ID: 1, WorkspaceID: 1, Name: "Old"})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/accounts/1", strings.NewReader(`{"name": "  New  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setupAuthContextWithWorkspace(c, "auth0|test", "test@example.com", "Test User", "", 1)

	if err := handler.UpdateAccount(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if accountRepo.Accounts[1].Name != "New" {
		t.Errorf("Expected trimmed name 'New', got %q", accountRepo.Accounts[1].Name)
	}
}

func TestDeleteAccount(t *testing.T) {
	e := echo.New()
	handler, accountRepo := newAccountHandler()
	accountRepo.AddAccount(&domain.Account{ID: 1, WorkspaceID: 1, Name: "Old"})

	for _, want := range []int{http.StatusNoContent, http.StatusNotFound} {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		setupAuthContextWithWorkspace(c, "auth0|test", "test@example.com", "Test User", "", 1)

		if err := handler.DeleteAccount(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Code != want {
			t.Errorf("Expected status %d, got %d", want, rec.Code)
		}
	}
}

func TestDeleteAccount_InvalidID(t *testing.T) {
	e := echo.New()
	handler, _ := newAccountHandler()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	setupAuthContextWithWorkspace(c, "auth0|test", "test@example.com", "Test User", "", 1)

	if err := handler.DeleteAccount(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}
