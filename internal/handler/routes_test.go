package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/dafibh/fortuna/financing-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type rejectingTokenValidator struct{}

func (rejectingTokenValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return nil, errors.New("bad token")
}

type noWorkspaces struct{}

func (noWorkspaces) ResolveWorkspaceID(auth0ID string) (int32, error) {
	return 0, errors.New("none")
}

func newRoutedEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	authMiddleware := middleware.NewAuthMiddlewareWithValidator(rejectingTokenValidator{}, noWorkspaces{})
	rl := middleware.NewRateLimiterWithConfig(60, 10)
	t.Cleanup(rl.Stop)

	accountHandler, _ := newAccountHandler()
	creditorHandler, _ := newCreditorHandler()
	financingHandler, _, _ := newFinancingHandler()
	authHandler, _, _ := newAuthHandler()
	receiptHandler, _ := newReceiptHandler(false)

	RegisterRoutes(e, authMiddleware, rl, Handlers{
		Auth:             authHandler,
		Account:          accountHandler,
		Creditor:         creditorHandler,
		Financing:        financingHandler,
		FinancingPayment: newPaymentHandlerFixture().handler,
		Receipt:          receiptHandler,
		WebSocket:        NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{}, nil),
	})
	return e
}

func TestRegisterRoutes_MountsLedgerEndpoints(t *testing.T) {
	e := newRoutedEcho(t)

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"POST /api/v1/accounts",
		"GET /api/v1/accounts",
		"POST /api/v1/creditors",
		"GET /api/v1/creditors",
		"POST /api/v1/financings",
		"GET /api/v1/financings",
		"GET /api/v1/financings/:id",
		"GET /api/v1/financings/:id/amortization",
		"POST /api/v1/financings/:id/simulate-early-payment",
		"POST /api/v1/financings/:id/installments",
		"POST /api/v1/financings/:id/early-payments",
		"POST /api/v1/financing-payments",
		"GET /api/v1/financing-payments",
		"GET /api/v1/financing-payments/:id/transaction",
		"DELETE /api/v1/financing-payments/:id",
		"POST /api/v1/financing-payments/:id/receipt",
		"GET /api/v1/financing-payments/:id/receipt",
		"POST /api/v1/auth/callback",
		"GET /ws",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestRegisterRoutes_RequireAuthentication(t *testing.T) {
	e := newRoutedEcho(t)

	for _, target := range []string{"/api/v1/financings", "/api/v1/financing-payments", "/api/v1/auth/me"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}
