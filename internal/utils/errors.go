package utils

import (
	"context"
	"errors"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Origin  error             // Original error that caused this error, if any
	Details map[string]string // Per-field messages for validation failures
	// OutcomeUnknown marks a write that may have committed after its caller
	// stopped waiting. Such an error is never retryable.
	OutcomeUnknown bool
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Error kinds. These strings are also the "kind" field of error responses.
const (
	ErrValidation   = "VALIDATION_ERROR"
	ErrUnauthorized = "UNAUTHORIZED" // No authenticated session
	ErrForbidden    = "FORBIDDEN"    // Authenticated but not permitted
	ErrNotFound     = "NOT_FOUND"
	ErrConflict     = "CONFLICT"        // Uniqueness race lost, safe to retry
	ErrTransient    = "TRANSIENT_INFRA" // Timeout or connectivity failure
	ErrInternal     = "INTERNAL"
)

func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewValidationError(message string, details map[string]string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Details: details,
	}
}

func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

func NewForbiddenError(reason string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "Forbidden: " + reason,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: resource + " not found",
	}
}

func NewConflictError(message string, originalErr error) *AppError {
	return NewAppError(ErrConflict, message, originalErr)
}

func NewTransientError(message string, originalErr error) *AppError {
	return NewAppError(ErrTransient, message, originalErr)
}

// NewOutcomeUnknownError reports a write whose result never reached the caller.
// The client has to read the current state before trying again.
func NewOutcomeUnknownError(originalErr error) *AppError {
	return &AppError{
		Code:           ErrTransient,
		Message:        "request timed out, check the current state before retrying",
		Origin:         originalErr,
		Details:        map[string]string{"outcome": "unknown"},
		OutcomeUnknown: true,
	}
}

// AsAppError classifies any error into the taxonomy. Context expiry counts as
// transient; anything unrecognised is internal.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTransientError("operation timed out", err)
	}
	return NewAppError(ErrInternal, "internal error", err)
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable is true for conflicts and transient infrastructure failures.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.OutcomeUnknown {
		return false
	}
	return IsErrorCode(err, ErrConflict) || IsErrorCode(err, ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded)
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
