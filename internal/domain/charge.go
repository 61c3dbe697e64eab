// Package domain encodes the charge aggregate and its lifecycle rules.
package domain

import (
	"time"
	"unicode/utf8"
)

// AuthorisationMode is the channel a charge is authorised through. Fixed at
// creation; it governs which transitions and response shapes are legal.
type AuthorisationMode string

const (
	ModeWeb       AuthorisationMode = "WEB"
	ModeMotoAPI   AuthorisationMode = "MOTO_API"
	ModeAgreement AuthorisationMode = "AGREEMENT"
	ModeExternal  AuthorisationMode = "EXTERNAL"
)

func ParseAuthorisationMode(s string) (AuthorisationMode, error) {
	switch AuthorisationMode(s) {
	case ModeWeb, ModeMotoAPI, ModeAgreement, ModeExternal:
		return AuthorisationMode(s), nil
	case "":
		return ModeWeb, nil
	default:
		return "", NewInvalidModeError(s)
	}
}

// MetadataValueMaxLength bounds free-text telephone metadata fields.
// Longer values are truncated silently.
const MetadataValueMaxLength = 50

type Charge struct {
	ID         int64
	ExternalID string

	// Status is mutated only through the state machine; Version is the
	// optimistic-concurrency guard and increments on every status write.
	Status  ChargeStatus
	Version int64

	// Credential pinned at creation, immutable once the charge reaches
	// ENTERING_CARD_DETAILS or later.
	GatewayAccountID           int64
	GatewayAccountCredentialID int64
	PaymentProvider            string

	AuthorisationMode AuthorisationMode
	Amount            int64
	Reference         string
	Description       string
	Email             string
	ReturnURL         string
	Metadata          map[string]string
	DelayedCapture    bool

	// CanRetry is only meaningful for AGREEMENT charges in failure states.
	// nil means undetermined; it is never present for WEB charges.
	CanRetry *bool

	AgreementID         *string
	PaymentInstrumentID *string

	// Provider-side reference; unique per provider for telephone admission.
	GatewayTransactionID *string

	// Telephone-sourced attributes. ProcessorID/ProviderID form the
	// admission idempotency key; SupplementalErrorCode keeps the granular
	// failure code that the external projection coarsens to P0050.
	ProcessorID           *string
	ProviderID            *string
	SupplementalErrorCode *string

	CardDetails *CardDetails

	CaptureAttempts    int
	CreatedAt          time.Time
	CaptureSubmittedAt *time.Time
}

func NewCharge(
	externalID string,
	gatewayAccountID int64,
	amount int64,
	reference string,
	returnURL string,
	mode AuthorisationMode,
	now time.Time,
) (*Charge, error) {
	if externalID == "" {
		return nil, NewMissingRequiredFieldError("charge id")
	}
	if gatewayAccountID == 0 {
		return nil, NewMissingRequiredFieldError("gateway account id")
	}
	if amount <= 0 {
		return nil, NewMissingRequiredFieldError("amount")
	}
	if reference == "" {
		return nil, NewMissingRequiredFieldError("reference")
	}
	if mode != ModeExternal && returnURL == "" {
		return nil, NewMissingRequiredFieldError("return url")
	}

	return &Charge{
		ExternalID:        externalID,
		Status:            StatusCreated,
		GatewayAccountID:  gatewayAccountID,
		Amount:            amount,
		Reference:         reference,
		ReturnURL:         returnURL,
		AuthorisationMode: mode,
		CreatedAt:         now,
	}, nil
}

// ExternalState projects the charge for its callers, applying the
// can_retry visibility rule: the flag is surfaced only for agreement
// charges sitting in a failure status.
func (c *Charge) ExternalState() ExternalState {
	return ExternalStateOf(c.Status)
}

func (c *Charge) CanRetryVisible() bool {
	return c.AuthorisationMode == ModeAgreement && c.Status.IsFailure()
}

// TruncateMetadata bounds every free-text metadata value. Truncation is
// silent; the caller is never told.
func TruncateMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = TruncateValue(v)
	}
	return out
}

// TruncateValue bounds a free-text field at MetadataValueMaxLength bytes,
// backing off to the previous rune boundary so the result is valid UTF-8.
func TruncateValue(s string) string {
	if len(s) <= MetadataValueMaxLength {
		return s
	}
	cut := MetadataValueMaxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
