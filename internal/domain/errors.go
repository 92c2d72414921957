package domain

import "errors"

// Domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternalError     = errors.New("internal error")
	ErrUserNotFound      = errors.New("user not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrNameRequired      = errors.New("name is required")
	ErrNameTooLong       = errors.New("name exceeds maximum length")
	ErrInvalidTemplate   = errors.New("invalid template")
)

// Validation constants
const (
	MaxAccountNameLength = 255
)

// notFoundErrors are the errors a caller sees when a resource is missing or
// belongs to another workspace.
var notFoundErrors = []error{
	ErrNotFound,
	ErrUserNotFound,
	ErrWorkspaceNotFound,
	ErrAccountNotFound,
	ErrBudgetCategoryNotFound,
	ErrCreditorNotFound,
	ErrFinancingNotFound,
	ErrFinancingPaymentNotFound,
	ErrTransactionNotFound,
	ErrReceiptNotFound,
}

// validationErrors are rejected before any mutation and are safe to show to users.
var validationErrors = []error{
	ErrInvalidInput,
	ErrNameRequired,
	ErrNameTooLong,
	ErrInvalidTemplate,
	ErrInvalidAmount,
	ErrAmountPrecision,
	ErrCreditorNameEmpty,
	ErrCreditorNameTooLong,
	ErrFinancingDescriptionEmpty,
	ErrFinancingDescriptionTooLong,
	ErrFinancingAmountInvalid,
	ErrFinancingTermInvalid,
	ErrInterestRateNegative,
	ErrInvalidAmortizationMethod,
	ErrFinancingSettled,
	ErrInvalidInstallmentNumber,
	ErrInstallmentAlreadyPaid,
	ErrPaymentAmountInvalid,
	ErrPaymentSplitInvalid,
	ErrDiscountInvalid,
	ErrPaymentSplitMismatch,
	ErrInvalidPaymentMethod,
	ErrInvalidPaymentType,
	ErrPaymentExceedsBalance,
	ErrInsufficientAccountBalance,
	ErrUnderpayment,
	ErrEarlyPaymentTooLarge,
	ErrInvalidEarlyPaymentPreference,
	ErrPaymentHasTransaction,
}

// IsNotFound reports whether err means the resource does not exist for the caller.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a caller-facing validation failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
