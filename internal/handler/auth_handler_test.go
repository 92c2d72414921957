package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/dafibh/fortuna/financing-backend/internal/service"
	"github.com/dafibh/fortuna/financing-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Helper to set up auth context
func setupAuthContext(c echo.Context, auth0ID string, email, name, picture string) {
	setupAuthContextWithWorkspace(c, auth0ID, email, name, picture, 0)
}

// Helper to set up auth context with workspace ID
func setupAuthContextWithWorkspace(c echo.Context, auth0ID string, email, name, picture string, workspaceID int32) {
	customClaims := &middleware.CustomClaims{
		Email:   email,
		Name:    name,
		Picture: picture,
	}
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Subject: auth0ID,
		},
		CustomClaims: customClaims,
	}
	ctx := context.WithValue(c.Request().Context(), middleware.ClaimsKey, claims)
	ctx = context.WithValue(ctx, middleware.Auth0IDKey, auth0ID)
	if workspaceID > 0 {
		ctx = context.WithValue(ctx, middleware.WorkspaceIDKey, workspaceID)
	}
	c.SetRequest(c.Request().WithContext(ctx))
}

func newAuthHandler() (*AuthHandler, *testutil.MockUserRepository, *testutil.MockWorkspaceRepository) {
	userRepo := testutil.NewMockUserRepository()
	workspaceRepo := testutil.NewMockWorkspaceRepository()
	return NewAuthHandler(service.NewAuthService(userRepo, workspaceRepo)), userRepo, workspaceRepo
}

func TestCallback_NewUser(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|newuser123", "new@example.com", "New User", "https://example.com/pic.jpg")

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response AuthCallbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if !response.IsNewUser {
		t.Error("Expected IsNewUser to be true for new user")
	}
	if response.User.Email != "new@example.com" {
		t.Errorf("Expected email 'new@example.com', got %s", response.User.Email)
	}
	if response.Workspace.Name != "Personal" {
		t.Errorf("Expected workspace name 'Personal', got %s", response.Workspace.Name)
	}
}

func TestCallback_ExistingUser(t *testing.T) {
	e := echo.New()
	handler, userRepo, workspaceRepo := newAuthHandler()

	auth0ID := "auth0|existing123"
	existingUser := &domain.User{ID: uuid.New(), Auth0ID: auth0ID, Email: "existing@example.com"}
	userRepo.AddUser(existingUser)
	workspaceRepo.AddWorkspace(&domain.Workspace{ID: 1, UserID: existingUser.ID, Name: "Household"}, auth0ID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, auth0ID, "existing@example.com", "Existing User", "")

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response AuthCallbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.IsNewUser {
		t.Error("Expected IsNewUser to be false for existing user")
	}
	if response.Workspace.Name != "Household" {
		t.Errorf("Expected workspace name 'Household', got %s", response.Workspace.Name)
	}
}

func TestCallback_MissingAuth0ID(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCallback_MissingEmail(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/callback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|noemail123", "", "No Email User", "")

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problemDetails ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problemDetails); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problemDetails.Type != ErrorTypeValidation {
		t.Errorf("Expected error type %s, got %s", ErrorTypeValidation, problemDetails.Type)
	}
}

func TestMe_Success(t *testing.T) {
	e := echo.New()
	handler, userRepo, workspaceRepo := newAuthHandler()

	auth0ID := "auth0|me123"
	name := "Me User"
	user := &domain.User{ID: uuid.New(), Auth0ID: auth0ID, Email: "me@example.com", Name: &name}
	userRepo.AddUser(user)
	workspaceRepo.AddWorkspace(&domain.Workspace{ID: 3, UserID: user.ID, Name: "Personal"}, auth0ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, auth0ID, "me@example.com", name, "")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response AuthCallbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.User.Email != "me@example.com" {
		t.Errorf("Expected email 'me@example.com', got %s", response.User.Email)
	}
	if response.Workspace.ID != 3 {
		t.Errorf("Expected workspace 3, got %d", response.Workspace.ID)
	}
}

func TestMe_WorkspaceNotCreatedYet(t *testing.T) {
	e := echo.New()
	handler, userRepo, _ := newAuthHandler()
	userRepo.AddUser(&domain.User{ID: uuid.New(), Auth0ID: "auth0|fresh", Email: "fresh@example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|fresh", "fresh@example.com", "", "")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestMe_UserNotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|notfound", "notfound@example.com", "Not Found", "")

	if err := handler.Me(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestLogout_Success(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|logout123", "logout@example.com", "Logout User", "")

	if err := handler.Logout(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response LogoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Message != "Logged out successfully" {
		t.Errorf("Expected message 'Logged out successfully', got %s", response.Message)
	}
}

func TestLogout_MissingAuth0ID(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Logout(c); err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	var problemDetails ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problemDetails); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problemDetails.Type != ErrorTypeUnauthorized {
		t.Errorf("Expected error type %s, got %s", ErrorTypeUnauthorized, problemDetails.Type)
	}
	if problemDetails.Status != http.StatusUnauthorized {
		t.Errorf("Expected status %d in body, got %d", http.StatusUnauthorized, problemDetails.Status)
	}
}
