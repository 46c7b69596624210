package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Parameter validation errors
	ErrInvalidEpsilon     = errors.New("invalid epsilon: must be positive")
	ErrInvalidSensitivity = errors.New("invalid sensitivity: must be positive")
	ErrInvalidDelta       = errors.New("invalid delta: must be in [0, 1)")
	ErrDegenerateEpsilon  = errors.New("invalid epsilon: log term degenerates to zero")
	ErrInvalidMechanism   = errors.New("invalid mechanism type")

	// Numeric domain errors
	ErrNumericDomain     = errors.New("numeric domain error")
	ErrNonFiniteInput    = errors.New("input value is not finite")
	ErrDeviateOutOfRange = errors.New("uniform deviate outside open interval")

	// Accounting errors
	ErrNegativeSpend = errors.New("negative privacy spend")

	// Internal errors
	ErrInternal       = errors.New("internal error")
	ErrNotImplemented = errors.New("not implemented")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNumeric    ErrorType = "numeric"
	ErrorTypeAccounting ErrorType = "accounting"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewValidationError creates a parameter validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewNumericError creates a numeric domain error
func NewNumericError(code, message string) *AppError {
	return NewAppError(ErrorTypeNumeric, code, message)
}

// NewAccountingError creates a privacy accounting error
func NewAccountingError(code, message string) *AppError {
	return NewAppError(ErrorTypeAccounting, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
}

// IsValidationError checks whether err is a parameter validation error
func IsValidationError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeValidation
	}
	return false
}

// IsNumericError checks whether err is a numeric domain error
func IsNumericError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeNumeric
	}
	return false
}
