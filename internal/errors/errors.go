package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes. The callable endpoint exposes these verbatim as its stable
// reason code.
const (
	ErrCodeNotFound                  = "NOT_FOUND"
	ErrCodeInvalidArgument           = "INVALID_ARGUMENT"
	ErrCodeUnauthenticated           = "UNAUTHENTICATED"
	ErrCodeFailedPrecondition        = "FAILED_PRECONDITION"
	ErrCodeInternal                  = "INTERNAL"
	ErrCodePermissionDenied          = "PERMISSION_DENIED"
	ErrCodePlatformUnavailable       = "PLATFORM_UNAVAILABLE"
	ErrCodeNoActiveContext           = "NO_ACTIVE_CONTEXT"
	ErrCodeRemoteWriteFailure        = "REMOTE_WRITE_FAILURE"
	ErrCodeCredentialExchangeFailure = "CREDENTIAL_EXCHANGE_FAILURE"
	ErrCodeIntegrationSkipped        = "INTEGRATION_SKIPPED"
	ErrCodeProviderQueryFailure      = "PROVIDER_QUERY_FAILURE"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "INVALID_ARGUMENT")
	Message string // Human-readable error message, safe to show callers
	Reason  string // Optional sub-reason (e.g. platform availability state)
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (never shown to callers)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// As is errors.As from the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Is is errors.Is from the standard library.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// New is errors.New from the standard library.
func New(text string) error { return stderrors.New(text) }

// CodeOf returns the AppError code found in err's chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err's chain holds an AppError with code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  http.StatusNotFound,
	}
}

// NewInvalidArgumentError creates a new INVALID_ARGUMENT error
func NewInvalidArgumentError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidArgument,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewUnauthenticatedError creates a new UNAUTHENTICATED error
func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthenticated,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewFailedPreconditionError creates a new FAILED_PRECONDITION error
func NewFailedPreconditionError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeFailedPrecondition,
		Message: message,
		Status:  http.StatusPreconditionFailed,
	}
}

// NewInternalError creates a new INTERNAL error with a generic message.
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewInternalErrorMessage creates an INTERNAL error with a caller-facing
// message. The wrapped cause stays server side.
func NewInternalErrorMessage(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewPermissionDeniedError signals a missing grant, either the health
// capability or admin access.
func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodePermissionDenied,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// NewPlatformUnavailableError signals the health SDK cannot be used.
// reason distinguishes missing, outdated and unsupported cases.
func NewPlatformUnavailableError(reason, message string) *AppError {
	return &AppError{
		Code:    ErrCodePlatformUnavailable,
		Message: message,
		Reason:  reason,
		Status:  http.StatusServiceUnavailable,
	}
}

// NewNoActiveContextError signals an operation needed a foreground UI context.
func NewNoActiveContextError(operation string) *AppError {
	return &AppError{
		Code:    ErrCodeNoActiveContext,
		Message: fmt.Sprintf("unable to %s without an active activity", operation),
		Status:  http.StatusConflict,
	}
}

// NewRemoteWriteFailure wraps a shared-store write failure.
func NewRemoteWriteFailure(path string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRemoteWriteFailure,
		Message: fmt.Sprintf("failed to write %s", path),
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// NewCredentialExchangeFailure wraps an OAuth exchange or refresh failure.
func NewCredentialExchangeFailure(err error) *AppError {
	return &AppError{
		Code:    ErrCodeCredentialExchangeFailure,
		Message: "credential exchange failed",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// NewIntegrationSkipped marks an integration record the aggregator cannot use.
func NewIntegrationSkipped(path, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeIntegrationSkipped,
		Message: fmt.Sprintf("integration %s skipped: %s", path, reason),
		Reason:  reason,
		Status:  http.StatusUnprocessableEntity,
	}
}

// NewProviderQueryFailure wraps an aggregate fetch or decode failure.
func NewProviderQueryFailure(err error) *AppError {
	return &AppError{
		Code:    ErrCodeProviderQueryFailure,
		Message: "provider query failed",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}
