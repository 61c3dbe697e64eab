package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeConflictingState     = "CONFLICTING_STATE"
	ErrCodeChargeNotFound       = "CHARGE_NOT_FOUND"
	ErrCodeNoActiveCredential   = "NO_ACTIVE_CREDENTIAL"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidMode          = "INVALID_AUTHORISATION_MODE"
	ErrCodeCanRetryUnsupported  = "CAN_RETRY_UNSUPPORTED"
)

// ErrStaleVersion is returned by stores when a conditional status write
// found a version other than the one the caller read. Request paths
// translate it into a conflict; background workers treat it as a skip.
var ErrStaleVersion = errors.New("charge version is stale")

// ErrProviderIDConflict is returned by stores when a telephone admission
// raced another create with the same (gateway account, provider id) key.
var ErrProviderIDConflict = errors.New("provider id already admitted for this account")

func NewConflictingStateError(expected, actual ChargeStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeConflictingState,
		Message: fmt.Sprintf("charge is in %s state, expected %s", actual, expected),
	}
}

func NewInvalidTransitionError(from, to ChargeStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeConflictingState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewChargeNotFoundError(externalID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeChargeNotFound,
		Message: fmt.Sprintf("charge with id %s not found", externalID),
	}
}

func NewNoActiveCredentialError(gatewayAccountID int64, provider string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoActiveCredential,
		Message: fmt.Sprintf("no single active credential for account %d and provider %s", gatewayAccountID, provider),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidModeError(mode string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidMode,
		Message: fmt.Sprintf("unknown authorisation mode %q", mode),
	}
}

func NewCanRetryUnsupportedError(mode AuthorisationMode) *DomainError {
	return &DomainError{
		Code:    ErrCodeCanRetryUnsupported,
		Message: fmt.Sprintf("can_retry is not applicable to %s charges", mode),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
