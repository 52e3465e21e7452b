// Package errors provides custom error types for the Fiscus API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput     = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound         = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer   = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrDependencyFailed = &AppError{Code: "DEPENDENCY_FAILED", Message: "A required dependency failed", StatusCode: http.StatusServiceUnavailable}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Space errors.
var (
	ErrSpaceNotFound  = &AppError{Code: "SPACE_NOT_FOUND", Message: "Space not found", StatusCode: http.StatusNotFound}
	ErrAlreadyMember  = &AppError{Code: "ALREADY_MEMBER", Message: "User is already a member of this space", StatusCode: http.StatusConflict}
	ErrMemberNotFound = &AppError{Code: "MEMBER_NOT_FOUND", Message: "User is not a member of this space", StatusCode: http.StatusNotFound}
)

// Category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse    = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing expenses or budgets", StatusCode: http.StatusConflict}
)

// Expense errors.
var (
	ErrExpenseNotFound = &AppError{Code: "EXPENSE_NOT_FOUND", Message: "Expense not found", StatusCode: http.StatusNotFound}
)

// Budget errors.
var (
	ErrBudgetNotFound         = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrTemplateNotFound       = &AppError{Code: "TEMPLATE_NOT_FOUND", Message: "Budget template not found", StatusCode: http.StatusNotFound}
	ErrBudgetPeriodOverlap    = &AppError{Code: "BUDGET_PERIOD_OVERLAP", Message: "An active budget already covers this period", StatusCode: http.StatusConflict}
	ErrInvalidDateRange       = &AppError{Code: "INVALID_DATE_RANGE", Message: "Start date must be before end date", StatusCode: http.StatusBadRequest}
	ErrAllocationExceedsTotal = &AppError{Code: "ALLOCATION_EXCEEDS_TOTAL", Message: "Sum of category allocations exceeds the budget total", StatusCode: http.StatusBadRequest}
	ErrInvalidAlertThreshold  = &AppError{Code: "INVALID_ALERT_THRESHOLD", Message: "Alert threshold is out of range", StatusCode: http.StatusBadRequest}
	ErrNotATemplate           = &AppError{Code: "NOT_A_TEMPLATE", Message: "Budget is not a template", StatusCode: http.StatusBadRequest}
)
