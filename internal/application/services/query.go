package services

import (
	"context"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/domain"
)

type QueryService struct {
	charges application.ChargeStore
}

func NewQueryService(charges application.ChargeStore) *QueryService {
	return &QueryService{charges: charges}
}

func (s *QueryService) FindByExternalID(ctx context.Context, gatewayAccountID int64, externalID string) (*domain.Charge, error) {
	charge, err := s.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if charge.GatewayAccountID != gatewayAccountID {
		// A charge id under the wrong account is indistinguishable from a
		// missing one.
		return nil, domain.NewChargeNotFoundError(externalID)
	}
	return charge, nil
}

func (s *QueryService) Events(ctx context.Context, gatewayAccountID int64, externalID string) ([]domain.ChargeEvent, error) {
	charge, err := s.FindByExternalID(ctx, gatewayAccountID, externalID)
	if err != nil {
		return nil, err
	}
	return s.charges.Events(ctx, charge.ID)
}

// PatchEmail replaces the charge email. Email is the only patchable
// attribute and replace is the only supported operation.
func (s *QueryService) PatchEmail(ctx context.Context, gatewayAccountID int64, externalID, email string) (*domain.Charge, error) {
	charge, err := s.FindByExternalID(ctx, gatewayAccountID, externalID)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, application.NewInvalidInputError(domain.NewMissingRequiredFieldError("email"))
	}
	if err := s.charges.UpdateEmail(ctx, charge.ID, email); err != nil {
		return nil, err
	}
	charge.Email = email
	return charge, nil
}

// SetCanRetry records the external retry-eligibility decision for an
// agreement charge sitting in a failure status. The flag does not exist
// for any other authorisation mode.
func (s *QueryService) SetCanRetry(ctx context.Context, gatewayAccountID int64, externalID string, canRetry bool) (*domain.Charge, error) {
	charge, err := s.FindByExternalID(ctx, gatewayAccountID, externalID)
	if err != nil {
		return nil, err
	}
	if charge.AuthorisationMode != domain.ModeAgreement {
		return nil, application.NewInvalidInputError(
			domain.NewCanRetryUnsupportedError(charge.AuthorisationMode))
	}
	if !charge.Status.IsFailure() {
		return nil, application.NewIllegalStateError(
			domain.NewConflictingStateError(domain.StatusAuthorisationRejected, charge.Status))
	}
	if err := s.charges.UpdateCanRetry(ctx, charge.ID, canRetry); err != nil {
		return nil, err
	}
	charge.CanRetry = &canRetry
	return charge, nil
}
