package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/gwpay/connector/internal/domain"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if errors.Is(err, domain.ErrStaleVersion) ||
		domain.IsErrorCode(err, domain.ErrCodeConflictingState) {
		return CategoryBusinessRule
	}

	if domain.IsErrorCode(err, domain.ErrCodeChargeNotFound) ||
		domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField) ||
		domain.IsErrorCode(err, domain.ErrCodeInvalidMode) ||
		domain.IsErrorCode(err, domain.ErrCodeCanRetryUnsupported) {
		return CategoryClientError
	}

	if domain.IsErrorCode(err, domain.ErrCodeNoActiveCredential) {
		// Zero or multiple ACTIVE credentials is a data invariant
		// violation, alerting rather than retryable.
		return CategoryInfrastructure
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidInput, ErrCodeNotFound, ErrCodeTelephoneOutcome:
			return CategoryClientError
		case ErrCodeIllegalState, ErrCodeCaptureConflict, ErrCodeAuthInProgress:
			return CategoryBusinessRule
		case ErrCodeProviderFailure:
			return CategoryTransient
		case ErrCodeInternal:
			return CategoryInfrastructure
		}
	}

	if provErr, ok := IsProviderError(err); ok {
		if provErr.IsRetryable() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	// Default: Transient (safe fallback)
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case domain.IsErrorCode(err, domain.ErrCodeChargeNotFound):
		return http.StatusNotFound
	case domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField),
		domain.IsErrorCode(err, domain.ErrCodeInvalidMode),
		domain.IsErrorCode(err, domain.ErrCodeCanRetryUnsupported):
		return http.StatusBadRequest
	case domain.IsErrorCode(err, domain.ErrCodeConflictingState),
		errors.Is(err, domain.ErrStaleVersion):
		return http.StatusConflict
	case domain.IsErrorCode(err, domain.ErrCodeNoActiveCredential):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	return http.StatusInternalServerError
}

// ToErrorMessage resolves any error to a caller-safe description. The
// wrapped cause never reaches the body; WriteError logs it instead.
func ToErrorMessage(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Message
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	if errors.Is(err, domain.ErrStaleVersion) {
		return "Charge was updated concurrently, retry the request"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}

	if _, ok := IsProviderError(err); ok {
		return "Payment provider could not be reached"
	}

	return "An internal error occurred"
}

// ToErrorCode resolves any error to the stable external identifier exposed
// to callers. Provider wire codes and storage detail never pass through.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if errors.Is(err, domain.ErrStaleVersion) {
		return domain.ErrCodeConflictingState
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}

	if _, ok := IsProviderError(err); ok {
		return ErrCodeProviderFailure
	}

	return ErrCodeInternal
}
