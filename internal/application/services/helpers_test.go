package services_test

import (
	"context"
	"testing"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/application/services"
	"github.com/gwpay/connector/internal/domain"
	"github.com/gwpay/connector/internal/infrastructure/events"
	"github.com/gwpay/connector/internal/infrastructure/persistence/memory"
	"github.com/gwpay/connector/internal/infrastructure/provider"
	"github.com/stretchr/testify/require"
)

const testAccountID int64 = 42

// Sandbox magic cards.
const (
	cardAuthorised = "4444333322221111"
	cardRejected   = "4000000000000002"
	cardError      = "4000000000000119"
)

type testEnv struct {
	store     *memory.Store
	sandbox   *provider.SandboxClient
	registry  *provider.Registry
	admission *services.AdmissionService
	authorise *services.AuthoriseService
	capture   *services.CaptureService
	query     *services.QueryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	store.SeedCredential(testAccountID, "sandbox", domain.CredentialActive)

	sandbox := provider.NewSandboxClient()
	registry := provider.NewRegistry()
	registry.Register("sandbox", sandbox)

	publisher := events.NopPublisher{}
	clock := application.SystemClock{}

	return &testEnv{
		store:     store,
		sandbox:   sandbox,
		registry:  registry,
		admission: services.NewAdmissionService(store, publisher, clock),
		authorise: services.NewAuthoriseService(store, store, registry, publisher, clock),
		capture:   services.NewCaptureService(store, publisher, clock),
		query:     services.NewQueryService(store),
	}
}

func (e *testEnv) createCharge(t *testing.T, cmd services.CreateChargeCommand) *domain.Charge {
	t.Helper()

	if cmd.GatewayAccountID == 0 {
		cmd.GatewayAccountID = testAccountID
	}
	if cmd.Amount == 0 {
		cmd.Amount = 6234
	}
	if cmd.Reference == "" {
		cmd.Reference = "ref-test"
	}
	if cmd.ReturnURL == "" {
		cmd.ReturnURL = "https://merchant.example/return"
	}

	charge, err := e.admission.CreateCharge(context.Background(), cmd)
	require.NoError(t, err)
	return charge
}

// chargeEnteringCardDetails creates a charge and walks it to the
// card-details step.
func (e *testEnv) chargeEnteringCardDetails(t *testing.T, cmd services.CreateChargeCommand) *domain.Charge {
	t.Helper()

	charge := e.createCharge(t, cmd)
	updated, err := e.admission.MarkEnteringCardDetails(context.Background(), charge.ExternalID)
	require.NoError(t, err)
	return updated
}

// chargeAwaitingCapture authorises a delayed-capture charge up to
// AWAITING_CAPTURE_REQUEST.
func (e *testEnv) chargeAwaitingCapture(t *testing.T) *domain.Charge {
	t.Helper()

	charge := e.chargeEnteringCardDetails(t, services.CreateChargeCommand{DelayedCapture: true})
	updated, err := e.authorise.Authorise(context.Background(), charge.ExternalID, domain.CardDetails{
		CardNumber:     cardAuthorised,
		CVC:            "123",
		CardholderName: "J. Doe",
		ExpiryMonth:    12,
		ExpiryYear:     2030,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusAwaitingCaptureRequest, updated.Status)
	return updated
}
