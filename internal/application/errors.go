package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeIllegalState     = "ILLEGAL_STATE"
	ErrCodeAuthInProgress   = "AUTHORISATION_IN_PROGRESS"
	ErrCodeCaptureConflict  = "CAPTURE_NOT_AWAITING"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeProviderFailure  = "PROVIDER_FAILURE"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeTelephoneOutcome = "INVALID_OUTCOME"
)

// NewIllegalStateError reports a charge that is not in a state the
// requested operation can process.
func NewIllegalStateError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeIllegalState,
		Message:    "Charge not in correct state to be processed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// NewAuthorisationInProgressError reports that another authorisation for
// the same charge has been dispatched and not yet resolved. Accepted, not
// retried.
func NewAuthorisationInProgressError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAuthInProgress,
		Message:    "Authorisation for this charge is already in progress",
		HTTPStatus: http.StatusAccepted,
	}
}

func NewCaptureConflictError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCaptureConflict,
		Message:    "Charge is not awaiting a capture request",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewNotFoundError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    "Not found",
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// NewProviderFailureError wraps a provider fault that left the charge in a
// recoverable in-progress status. Wire detail stays internal.
func NewProviderFailureError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeProviderFailure,
		Message:    "Payment provider could not be reached",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidOutcomeError(status string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeTelephoneOutcome,
		Message:    fmt.Sprintf("unrecognised payment outcome status %q", status),
		HTTPStatus: http.StatusBadRequest,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// ProviderError is a fault reported by an external payment gateway.
type ProviderError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// IsRetryable reports whether the fault is transient. Server-side faults
// are retried by the capture processor; everything else is permanent.
func (e *ProviderError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.Code == "internal_error"
}

func IsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	ok := errors.As(err, &provErr)
	return provErr, ok
}
