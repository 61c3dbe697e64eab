package application

import (
	"context"
	"time"

	"github.com/gwpay/connector/internal/domain"
)

// ChargeStore is the port for charge persistence. Every status write is a
// compare-and-swap on the version the caller read; a stale version comes
// back as domain.ErrStaleVersion and is never retried inside the store.
type ChargeStore interface {
	// CreateCharge resolves the single ACTIVE credential for the charge's
	// account (optionally narrowed to providerOverride), pins it onto the
	// charge, inserts the charge row, and appends one event per status in
	// events, all in one transaction.
	CreateCharge(ctx context.Context, charge *domain.Charge, providerOverride string, events ...domain.ChargeStatus) error

	FindByExternalID(ctx context.Context, externalID string) (*domain.Charge, error)

	// FindByProviderID looks a telephone charge up by its admission
	// idempotency key.
	FindByProviderID(ctx context.Context, gatewayAccountID int64, providerID string) (*domain.Charge, error)

	// TransitionStatus performs the single conditional update
	// "set status, version = version+1 where id and version match" and
	// appends the matching event. Returns the updated charge.
	TransitionStatus(ctx context.Context, chargeID, expectedVersion int64, to domain.ChargeStatus) (*domain.Charge, error)

	// RecordAuthorisationOutcome is TransitionStatus plus the provider
	// transaction id and sanitised card details captured during the
	// authorisation call.
	RecordAuthorisationOutcome(ctx context.Context, chargeID, expectedVersion int64, to domain.ChargeStatus, gatewayTransactionID string, card *domain.CardDetails) (*domain.Charge, error)

	// MarkCaptured is TransitionStatus to CAPTURED plus the capture
	// submission timestamp.
	MarkCaptured(ctx context.Context, chargeID, expectedVersion int64, submittedAt time.Time) (*domain.Charge, error)

	// ScheduleCaptureRetry returns a claimed charge to CAPTURE_APPROVED
	// and bumps its attempt counter so a later cycle picks it up again.
	ScheduleCaptureRetry(ctx context.Context, chargeID, expectedVersion int64) (*domain.Charge, error)

	// FindChargesForCapture returns charges awaiting capture, oldest first.
	FindChargesForCapture(ctx context.Context, limit int) ([]*domain.Charge, error)

	// FindChargesForExpiry returns non-terminal pre-capture charges
	// created strictly before createdBefore, oldest first.
	FindChargesForExpiry(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Charge, error)

	UpdateEmail(ctx context.Context, chargeID int64, email string) error
	UpdateCanRetry(ctx context.Context, chargeID int64, canRetry bool) error

	Events(ctx context.Context, chargeID int64) ([]domain.ChargeEvent, error)
}

// CredentialStore reads gateway account credentials. Credentials are owned
// by an external service; this connector never mutates them.
type CredentialStore interface {
	FindByID(ctx context.Context, credentialID int64) (*domain.GatewayAccountCredential, error)
}

// AuthorisationOutcome is the provider's synchronous answer to an
// authorisation or capture call.
type AuthorisationOutcome string

const (
	OutcomeAuthorised  AuthorisationOutcome = "AUTHORISED"
	OutcomeRejected    AuthorisationOutcome = "REJECTED"
	OutcomeError       AuthorisationOutcome = "ERROR"
	OutcomeRequires3DS AuthorisationOutcome = "REQUIRES_3DS"
)

type ProviderAuthoriseRequest struct {
	Credential domain.GatewayAccountCredential
	Card       domain.CardDetails
	Amount     int64
	Reference  string
}

type ProviderAuthoriseResponse struct {
	Outcome               AuthorisationOutcome
	ProviderTransactionID string
	ThreeDSIssuerURL      string
}

type ProviderCaptureRequest struct {
	Credential            domain.GatewayAccountCredential
	ProviderTransactionID string
	Amount                int64
}

type ProviderCaptureResponse struct {
	Outcome AuthorisationOutcome
}

// ProviderClient is the port for one external payment gateway. A call that
// fails returns a ProviderError carrying whether the fault is transient.
type ProviderClient interface {
	Authorise(ctx context.Context, req ProviderAuthoriseRequest) (*ProviderAuthoriseResponse, error)
	Capture(ctx context.Context, req ProviderCaptureRequest) (*ProviderCaptureResponse, error)
}

// ProviderResolver selects the ProviderClient implementation for the
// provider a charge's credential is pinned to. This is the only place
// provider names are branched on.
type ProviderResolver interface {
	ClientFor(providerName string) (ProviderClient, error)
}

// EventPublisher notifies downstream consumers of a charge transition.
// Fire-and-forget, at-least-once; a publish failure is logged by the
// implementation and never blocks the transition that triggered it.
type EventPublisher interface {
	Publish(ctx context.Context, chargeExternalID string, status domain.ChargeStatus, occurredAt time.Time)
}

// Clock abstracts "now" so the workers are testable without real timers.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
