package handler

import (
	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth             *AuthHandler
	Account          *AccountHandler
	Creditor         *CreditorHandler
	Financing        *FinancingHandler
	FinancingPayment *FinancingPaymentHandler
	Receipt          *ReceiptHandler
	WebSocket        *WebSocketHandler
}

// RegisterRoutes sets up all API routes. Ledger mutations are rate limited per workspace.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// WebSocket authenticates through the token query parameter
	e.GET("/ws", h.WebSocket.HandleWS)

	api := e.Group("/api/v1")
	limited := middleware.RateLimitMiddleware(rateLimiter)

	// Auth routes only need a valid token; the workspace may not exist before the callback
	auth := api.Group("/auth")
	auth.Use(authMiddleware.Identify())
	auth.POST("/callback", h.Auth.Callback)
	auth.GET("/me", h.Auth.Me)
	auth.POST("/logout", h.Auth.Logout)

	accounts := api.Group("/accounts")
	accounts.Use(authMiddleware.Authenticate())
	accounts.POST("", h.Account.CreateAccount)
	accounts.GET("", h.Account.GetAccounts)
	accounts.GET("/:id", h.Account.GetAccount)
	accounts.PUT("/:id", h.Account.UpdateAccount)
	accounts.DELETE("/:id", h.Account.DeleteAccount)

	creditors := api.Group("/creditors")
	creditors.Use(authMiddleware.Authenticate())
	creditors.POST("", h.Creditor.CreateCreditor)
	creditors.GET("", h.Creditor.GetCreditors)
	creditors.GET("/:id", h.Creditor.GetCreditor)

	financings := api.Group("/financings")
	financings.Use(authMiddleware.Authenticate())
	financings.POST("", h.Financing.CreateFinancing)
	financings.GET("", h.Financing.GetFinancings)
	financings.GET("/:id", h.Financing.GetFinancing)
	financings.GET("/:id/amortization", h.Financing.GetAmortizationTable)
	financings.POST("/:id/simulate-early-payment", h.Financing.SimulateEarlyPayment)
	financings.POST("/:id/installments", h.FinancingPayment.PayInstallment, limited)
	financings.POST("/:id/early-payments", h.FinancingPayment.RegisterEarlyPayment, limited)

	payments := api.Group("/financing-payments")
	payments.Use(authMiddleware.Authenticate())
	payments.POST("", h.FinancingPayment.CreatePayment, limited)
	payments.GET("", h.FinancingPayment.ListPayments)
	payments.GET("/:id", h.FinancingPayment.GetPayment)
	payments.GET("/:id/transaction", h.FinancingPayment.GetPaymentTransaction)
	payments.DELETE("/:id", h.FinancingPayment.DeletePayment, limited)
	payments.POST("/:id/receipt", h.Receipt.UploadReceipt, limited)
	payments.GET("/:id/receipt", h.Receipt.GetReceipt)
}
