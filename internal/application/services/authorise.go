package services

import (
	"context"
	"errors"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/domain"
)

// AuthoriseService coordinates one authorisation attempt against the
// provider the charge's credential is pinned to. The claim transition to
// AUTHORISATION_READY is the double-submission guard: a concurrent request
// loses the compare-and-swap and is answered with "in progress".
type AuthoriseService struct {
	charges     application.ChargeStore
	credentials application.CredentialStore
	providers   application.ProviderResolver
	publisher   application.EventPublisher
	clock       application.Clock
}

func NewAuthoriseService(
	charges application.ChargeStore,
	credentials application.CredentialStore,
	providers application.ProviderResolver,
	publisher application.EventPublisher,
	clock application.Clock,
) *AuthoriseService {
	return &AuthoriseService{
		charges:     charges,
		credentials: credentials,
		providers:   providers,
		publisher:   publisher,
		clock:       clock,
	}
}

func (s *AuthoriseService) Authorise(ctx context.Context, externalID string, card domain.CardDetails) (*domain.Charge, error) {
	charge, err := s.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if err := checkAuthorisable(charge.Status); err != nil {
		return nil, err
	}

	claimed, err := s.charges.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusAuthorisationReady)
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			return nil, s.resolveStaleClaim(ctx, externalID)
		}
		return nil, err
	}

	credential, err := s.credentials.FindByID(ctx, claimed.GatewayAccountCredentialID)
	if err != nil {
		return claimed, application.NewInternalError(err)
	}

	client, err := s.providers.ClientFor(credential.PaymentProvider)
	if err != nil {
		return claimed, application.NewInternalError(err)
	}

	resp, err := client.Authorise(ctx, application.ProviderAuthoriseRequest{
		Credential: *credential,
		Card:       card,
		Amount:     claimed.Amount,
		Reference:  claimed.Reference,
	})
	if err != nil {
		// The charge stays in AUTHORISATION_READY for operator or expiry
		// resolution; a silent revert here could race a late provider
		// response into a double authorisation.
		return claimed, application.NewProviderFailureError(err)
	}

	target := statusForOutcome(resp.Outcome)
	sanitised := card.Sanitise()
	updated, err := s.charges.RecordAuthorisationOutcome(
		ctx, claimed.ID, claimed.Version, target, resp.ProviderTransactionID, &sanitised)
	if err != nil {
		return claimed, err
	}
	s.publisher.Publish(ctx, updated.ExternalID, updated.Status, s.clock.Now())

	if updated.Status == domain.StatusAuthorisationSuccess {
		return s.advanceTowardsCapture(ctx, updated)
	}
	return updated, nil
}

// advanceTowardsCapture moves a freshly authorised charge to the queue the
// capture processor drains: straight to CAPTURE_APPROVED for immediate
// capture, or AWAITING_CAPTURE_REQUEST when the caller asked for an
// explicit approval step.
func (s *AuthoriseService) advanceTowardsCapture(ctx context.Context, charge *domain.Charge) (*domain.Charge, error) {
	next := domain.StatusCaptureApproved
	if charge.DelayedCapture {
		next = domain.StatusAwaitingCaptureRequest
	}

	updated, err := s.charges.TransitionStatus(ctx, charge.ID, charge.Version, next)
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			// Someone else already advanced it; the authorisation itself
			// succeeded, which is what the caller asked about.
			return s.charges.FindByExternalID(ctx, charge.ExternalID)
		}
		return charge, err
	}

	s.publisher.Publish(ctx, updated.ExternalID, updated.Status, s.clock.Now())
	return updated, nil
}

func (s *AuthoriseService) resolveStaleClaim(ctx context.Context, externalID string) error {
	charge, err := s.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	if charge.Status == domain.StatusAuthorisationReady {
		return application.NewAuthorisationInProgressError()
	}
	return application.NewIllegalStateError(
		domain.NewConflictingStateError(domain.StatusEnteringCardDetails, charge.Status))
}

func checkAuthorisable(status domain.ChargeStatus) error {
	switch status {
	case domain.StatusEnteringCardDetails:
		return nil
	case domain.StatusAuthorisationReady:
		return application.NewAuthorisationInProgressError()
	default:
		return application.NewIllegalStateError(
			domain.NewConflictingStateError(domain.StatusEnteringCardDetails, status))
	}
}

func statusForOutcome(outcome application.AuthorisationOutcome) domain.ChargeStatus {
	switch outcome {
	case application.OutcomeAuthorised:
		return domain.StatusAuthorisationSuccess
	case application.OutcomeRejected:
		return domain.StatusAuthorisationRejected
	case application.OutcomeRequires3DS:
		return domain.StatusAuthorisation3DSNeeded
	default:
		return domain.StatusAuthorisationError
	}
}
