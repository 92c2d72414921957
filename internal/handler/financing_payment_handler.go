package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/middleware"
	"github.com/dafibh/fortuna/financing-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// FinancingPaymentHandler handles the payment ledger of financings
type FinancingPaymentHandler struct {
	paymentService *service.FinancingPaymentService
}

// NewFinancingPaymentHandler creates a new FinancingPaymentHandler
func NewFinancingPaymentHandler(paymentService *service.FinancingPaymentService) *FinancingPaymentHandler {
	return &FinancingPaymentHandler{paymentService: paymentService}
}

// CreateFinancingPaymentRequest records a payment with an explicit principal/interest split
type CreateFinancingPaymentRequest struct {
	FinancingID       int32   `json:"financingId"`
	AccountID         int32   `json:"accountId"`
	InstallmentNumber *int32  `json:"installmentNumber,omitempty"`
	PaymentAmount     string  `json:"paymentAmount"`
	PrincipalAmount   string  `json:"principalAmount"`
	InterestAmount    string  `json:"interestAmount"`
	DiscountAmount    string  `json:"discountAmount,omitempty"`
	PaymentDate       string  `json:"paymentDate"`
	PaymentMethod     string  `json:"paymentMethod"`
	PaymentType       string  `json:"paymentType"`
	CategoryID        *int32  `json:"categoryId,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// PayInstallmentRequest pays one scheduled installment. PaymentAmount defaults to the amount due.
type PayInstallmentRequest struct {
	InstallmentNumber int32   `json:"installmentNumber"`
	AccountID         int32   `json:"accountId"`
	PaymentAmount     string  `json:"paymentAmount,omitempty"`
	PaymentDate       string  `json:"paymentDate,omitempty"`
	PaymentMethod     string  `json:"paymentMethod"`
	CategoryID        *int32  `json:"categoryId,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// EarlyPaymentRequest pays principal outside the schedule
type EarlyPaymentRequest struct {
	AccountID      int32   `json:"accountId"`
	PaymentAmount  string  `json:"paymentAmount"`
	DiscountAmount string  `json:"discountAmount,omitempty"`
	PaymentDate    string  `json:"paymentDate,omitempty"`
	PaymentMethod  string  `json:"paymentMethod"`
	CategoryID     *int32  `json:"categoryId,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// FinancingPaymentResponse represents one ledger row in API responses
type FinancingPaymentResponse struct {
	ID                int32   `json:"id"`
	FinancingID       int32   `json:"financingId"`
	AccountID         int32   `json:"accountId"`
	InstallmentNumber *int32  `json:"installmentNumber"`
	PaymentAmount     string  `json:"paymentAmount"`
	PrincipalAmount   string  `json:"principalAmount"`
	InterestAmount    string  `json:"interestAmount"`
	DiscountAmount    string  `json:"discountAmount"`
	BalanceBefore     string  `json:"balanceBefore"`
	BalanceAfter      string  `json:"balanceAfter"`
	PaymentDate       string  `json:"paymentDate"`
	PaymentMethod     string  `json:"paymentMethod"`
	PaymentType       string  `json:"paymentType"`
	TransactionID     *int32  `json:"transactionId,omitempty"`
	Notes             *string `json:"notes,omitempty"`
	CreatedAt         string  `json:"createdAt"`
}

// TransactionResponse represents the expense transaction generated by a payment
type TransactionResponse struct {
	ID                 int32   `json:"id"`
	AccountID          int32   `json:"accountId"`
	Name               string  `json:"name"`
	Amount             string  `json:"amount"`
	Type               string  `json:"type"`
	TransactionDate    string  `json:"transactionDate"`
	IsPaid             bool    `json:"isPaid"`
	CategoryID         *int32  `json:"categoryId,omitempty"`
	FinancingPaymentID *int32  `json:"financingPaymentId,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}

// PaymentResultResponse is returned by every ledger mutation
type PaymentResultResponse struct {
	Payment     FinancingPaymentResponse `json:"payment"`
	Transaction *TransactionResponse     `json:"transaction"`
	Financing   FinancingResponse        `json:"financing"`
}

// PaymentStatisticsResponse summarises every row matching a listing's filters
type PaymentStatisticsResponse struct {
	TotalPayments  int64  `json:"totalPayments"`
	TotalPaid      string `json:"totalPaid"`
	TotalPrincipal string `json:"totalPrincipal"`
	TotalInterest  string `json:"totalInterest"`
	TotalDiscount  string `json:"totalDiscount"`
	ScheduledCount int64  `json:"scheduledCount"`
	PartialCount   int64  `json:"partialCount"`
	EarlyCount     int64  `json:"earlyCount"`
}

// PaymentListResponse is one page of the ledger
type PaymentListResponse struct {
	Data       []FinancingPaymentResponse `json:"data"`
	Page       int32                      `json:"page"`
	PageSize   int32                      `json:"pageSize"`
	TotalItems int64                      `json:"totalItems"`
	TotalPages int32                      `json:"totalPages"`
	Statistics PaymentStatisticsResponse  `json:"statistics"`
}

// CreatePayment handles POST /api/v1/financing-payments
func (h *FinancingPaymentHandler) CreatePayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateFinancingPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var p amountParser
	input := service.CreatePaymentInput{
		FinancingID:       req.FinancingID,
		AccountID:         req.AccountID,
		InstallmentNumber: req.InstallmentNumber,
		PaymentAmount:     p.required("paymentAmount", req.PaymentAmount),
		PrincipalAmount:   p.required("principalAmount", req.PrincipalAmount),
		InterestAmount:    p.required("interestAmount", req.InterestAmount),
		DiscountAmount:    p.orZero("discountAmount", req.DiscountAmount),
		PaymentDate:       p.date("paymentDate", req.PaymentDate, true),
		PaymentMethod:     domain.PaymentMethod(req.PaymentMethod),
		PaymentType:       domain.PaymentType(req.PaymentType),
		CategoryID:        req.CategoryID,
		Notes:             req.Notes,
	}
	if req.FinancingID <= 0 {
		p.errors = append(p.errors, ValidationError{Field: "financingId", Message: "Is required"})
	}
	if req.AccountID <= 0 {
		p.errors = append(p.errors, ValidationError{Field: "accountId", Message: "Is required"})
	}
	if p.failed() {
		return NewValidationError(c, "Validation failed", p.errors)
	}

	result, err := h.paymentService.CreatePayment(c.Request().Context(), workspaceID, input)
	if err != nil {
		return respondError(c, err, workspaceID, "record payment")
	}
	return c.JSON(http.StatusCreated, toPaymentResultResponse(result))
}

// PayInstallment handles POST /api/v1/financings/:id/installments
func (h *FinancingPaymentHandler) PayInstallment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financingID, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	var req PayInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var p amountParser
	input := service.PayInstallmentInput{
		InstallmentNumber: req.InstallmentNumber,
		AccountID:         req.AccountID,
		PaymentAmount:     p.optional("paymentAmount", req.PaymentAmount),
		PaymentDate:       todayIfZero(p.date("paymentDate", req.PaymentDate, false)),
		PaymentMethod:     domain.PaymentMethod(req.PaymentMethod),
		CategoryID:        req.CategoryID,
		Notes:             req.Notes,
	}
	if req.AccountID <= 0 {
		p.errors = append(p.errors, ValidationError{Field: "accountId", Message: "Is required"})
	}
	if p.failed() {
		return NewValidationError(c, "Validation failed", p.errors)
	}

	result, err := h.paymentService.PayInstallment(c.Request().Context(), workspaceID, financingID, input)
	if err != nil {
		return respondError(c, err, workspaceID, "pay installment")
	}
	return c.JSON(http.StatusCreated, toPaymentResultResponse(result))
}

// RegisterEarlyPayment handles POST /api/v1/financings/:id/early-payments
func (h *FinancingPaymentHandler) RegisterEarlyPayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financingID, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	var req EarlyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var p amountParser
	input := service.EarlyPaymentInput{
		AccountID:      req.AccountID,
		PaymentAmount:  p.required("paymentAmount", req.PaymentAmount),
		DiscountAmount: p.orZero("discountAmount", req.DiscountAmount),
		PaymentDate:    todayIfZero(p.date("paymentDate", req.PaymentDate, false)),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		CategoryID:     req.CategoryID,
		Notes:          req.Notes,
	}
	if req.AccountID <= 0 {
		p.errors = append(p.errors, ValidationError{Field: "accountId", Message: "Is required"})
	}
	if p.failed() {
		return NewValidationError(c, "Validation failed", p.errors)
	}

	result, err := h.paymentService.RegisterEarlyPayment(c.Request().Context(), workspaceID, financingID, input)
	if err != nil {
		return respondError(c, err, workspaceID, "register early payment")
	}
	return c.JSON(http.StatusCreated, toPaymentResultResponse(result))
}

// ListPayments handles GET /api/v1/financing-payments
func (h *FinancingPaymentHandler) ListPayments(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	filters, fieldErrs := parsePaymentFilters(c)
	if len(fieldErrs) > 0 {
		return NewValidationError(c, "Invalid query parameters", fieldErrs)
	}

	page, err := h.paymentService.ListPayments(workspaceID, filters)
	if err != nil {
		return respondError(c, err, workspaceID, "list payments")
	}

	data := make([]FinancingPaymentResponse, len(page.Data))
	for i, payment := range page.Data {
		data[i] = toPaymentResponse(payment)
	}
	stats := page.Statistics
	return c.JSON(http.StatusOK, PaymentListResponse{
		Data:       data,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		Statistics: PaymentStatisticsResponse{
			TotalPayments:  stats.TotalPayments,
			TotalPaid:      money(stats.TotalPaid),
			TotalPrincipal: money(stats.TotalPrincipal),
			TotalInterest:  money(stats.TotalInterest),
			TotalDiscount:  money(stats.TotalDiscount),
			ScheduledCount: stats.ScheduledCount,
			PartialCount:   stats.PartialCount,
			EarlyCount:     stats.EarlyCount,
		},
	})
}

// GetPayment handles GET /api/v1/financing-payments/:id
func (h *FinancingPaymentHandler) GetPayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	payment, err := h.paymentService.GetPayment(workspaceID, id)
	if err != nil {
		return respondError(c, err, workspaceID, "get payment")
	}
	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// GetPaymentTransaction handles GET /api/v1/financing-payments/:id/transaction
func (h *FinancingPaymentHandler) GetPaymentTransaction(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	transaction, err := h.paymentService.GetPaymentTransaction(workspaceID, id)
	if err != nil {
		return respondError(c, err, workspaceID, "get payment transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(transaction))
}

// DeletePayment handles DELETE /api/v1/financing-payments/:id and returns the recomputed financing
func (h *FinancingPaymentHandler) DeletePayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := paramID(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	financing, err := h.paymentService.DeletePayment(c.Request().Context(), workspaceID, id)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentHasTransaction) {
			return NewConflictError(c, sentence(err))
		}
		return respondError(c, err, workspaceID, "delete payment")
	}
	return c.JSON(http.StatusOK, toFinancingResponse(financing))
}

func parsePaymentFilters(c echo.Context) (*domain.FinancingPaymentFilters, []ValidationError) {
	var errs []ValidationError
	invalid := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	filters := &domain.FinancingPaymentFilters{}
	var ok bool
	if filters.FinancingID, ok = queryInt32(c, "financingId"); !ok {
		invalid("financingId", "Must be an integer")
	}
	if filters.AccountID, ok = queryInt32(c, "accountId"); !ok {
		invalid("accountId", "Must be an integer")
	}
	if filters.StartDate, ok = queryDate(c, "startDate"); !ok {
		invalid("startDate", "Must be a date in YYYY-MM-DD format")
	}
	if filters.EndDate, ok = queryDate(c, "endDate"); !ok {
		invalid("endDate", "Must be a date in YYYY-MM-DD format")
	}
	if raw := c.QueryParam("paymentType"); raw != "" {
		pt := domain.PaymentType(raw)
		filters.PaymentType = &pt
	}
	if page, ok := queryInt32(c, "page"); !ok {
		invalid("page", "Must be an integer")
	} else if page != nil {
		filters.Page = *page
	}
	if size, ok := queryInt32(c, "pageSize"); !ok {
		invalid("pageSize", "Must be an integer")
	} else if size != nil {
		filters.PageSize = *size
	}
	return filters, errs
}

func todayIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func toPaymentResponse(p *domain.FinancingPayment) FinancingPaymentResponse {
	return FinancingPaymentResponse{
		ID:                p.ID,
		FinancingID:       p.FinancingID,
		AccountID:         p.AccountID,
		InstallmentNumber: p.InstallmentNumber,
		PaymentAmount:     money(p.PaymentAmount),
		PrincipalAmount:   money(p.PrincipalAmount),
		InterestAmount:    money(p.InterestAmount),
		DiscountAmount:    money(p.DiscountAmount),
		BalanceBefore:     money(p.BalanceBefore),
		BalanceAfter:      money(p.BalanceAfter),
		PaymentDate:       formatDate(p.PaymentDate),
		PaymentMethod:     string(p.PaymentMethod),
		PaymentType:       string(p.PaymentType),
		TransactionID:     p.TransactionID,
		Notes:             p.Notes,
		CreatedAt:         formatTimestamp(p.CreatedAt),
	}
}

func toTransactionResponse(t *domain.Transaction) *TransactionResponse {
	if t == nil {
		return nil
	}
	return &TransactionResponse{
		ID:                 t.ID,
		AccountID:          t.AccountID,
		Name:               t.Name,
		Amount:             money(t.Amount),
		Type:               string(t.Type),
		TransactionDate:    formatDate(t.TransactionDate),
		IsPaid:             t.IsPaid,
		CategoryID:         t.CategoryID,
		FinancingPaymentID: t.FinancingPaymentID,
		Notes:              t.Notes,
	}
}

func toPaymentResultResponse(result *domain.PaymentResult) PaymentResultResponse {
	return PaymentResultResponse{
		Payment:     toPaymentResponse(result.Payment),
		Transaction: toTransactionResponse(result.Transaction),
		Financing:   toFinancingResponse(result.Financing),
	}
}
