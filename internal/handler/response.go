package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://financing.app/errors/validation"
	ErrorTypeNotFound     = "https://financing.app/errors/not-found"
	ErrorTypeUnauthorized = "https://financing.app/errors/unauthorized"
	ErrorTypeConflict     = "https://financing.app/errors/conflict"
	ErrorTypeUnavailable  = "https://financing.app/errors/unavailable"
	ErrorTypeInternal     = "https://financing.app/errors/internal"
)

func problem(c echo.Context, status int, errorType, title, detail string, errs []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return problem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, nil)
}

// NewServiceUnavailableError creates a response for a disabled optional feature
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return problem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, "Service Unavailable", detail, nil)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}

// errorFields names the request field a validation error belongs to
var errorFields = map[error]string{
	domain.ErrNameRequired:                  "name",
	domain.ErrNameTooLong:                   "name",
	domain.ErrInvalidTemplate:               "template",
	domain.ErrInvalidAmount:                 "initialBalance",
	domain.ErrCreditorNameEmpty:             "name",
	domain.ErrCreditorNameTooLong:           "name",
	domain.ErrFinancingDescriptionEmpty:     "description",
	domain.ErrFinancingDescriptionTooLong:   "description",
	domain.ErrFinancingAmountInvalid:        "totalAmount",
	domain.ErrFinancingTermInvalid:          "termMonths",
	domain.ErrInterestRateNegative:          "interestRate",
	domain.ErrInvalidAmortizationMethod:     "amortizationMethod",
	domain.ErrInvalidInstallmentNumber:      "installmentNumber",
	domain.ErrPaymentAmountInvalid:          "paymentAmount",
	domain.ErrPaymentSplitInvalid:           "principalAmount",
	domain.ErrDiscountInvalid:               "discountAmount",
	domain.ErrPaymentSplitMismatch:          "paymentAmount",
	domain.ErrInvalidPaymentMethod:          "paymentMethod",
	domain.ErrInvalidPaymentType:            "paymentType",
	domain.ErrPaymentExceedsBalance:         "principalAmount",
	domain.ErrInsufficientAccountBalance:    "accountId",
	domain.ErrUnderpayment:                  "paymentAmount",
	domain.ErrEarlyPaymentTooLarge:          "paymentAmount",
	domain.ErrInvalidEarlyPaymentPreference: "preference",
}

func fieldFor(err error) string {
	for target, field := range errorFields {
		if errors.Is(err, target) {
			return field
		}
	}
	return ""
}

// respondError maps a service error onto the problem details taxonomy.
// Anything unrecognised is logged and hidden behind "Failed to <action>".
func respondError(c echo.Context, err error, workspaceID int32, action string) error {
	switch {
	case errors.Is(err, domain.ErrInstallmentAlreadyPaid):
		return NewConflictError(c, sentence(err))
	case domain.IsNotFound(err):
		return NewNotFoundError(c, sentence(err))
	case domain.IsValidation(err):
		var fields []ValidationError
		if field := fieldFor(err); field != "" {
			fields = []ValidationError{{Field: field, Message: sentence(err)}}
		}
		return NewValidationError(c, sentence(err), fields)
	}

	log.Error().Err(err).Int32("workspace_id", workspaceID).Str("path", c.Request().URL.Path).Msg("Failed to " + action)
	return NewInternalError(c, "Failed to "+action)
}

// sentence capitalises a sentinel error message for display
func sentence(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
