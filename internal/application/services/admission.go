package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/domain"
)

// AdmissionService creates charges. Both paths pin the account's single
// ACTIVE credential inside the transaction that creates the charge row, so
// a provider switch mid-flight can never change which credentials an
// existing charge settles against.
type AdmissionService struct {
	charges   application.ChargeStore
	publisher application.EventPublisher
	clock     application.Clock
}

func NewAdmissionService(
	charges application.ChargeStore,
	publisher application.EventPublisher,
	clock application.Clock,
) *AdmissionService {
	return &AdmissionService{
		charges:   charges,
		publisher: publisher,
		clock:     clock,
	}
}

func (s *AdmissionService) CreateCharge(ctx context.Context, cmd CreateChargeCommand) (*domain.Charge, error) {
	mode, err := domain.ParseAuthorisationMode(cmd.AuthorisationMode)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	if mode == domain.ModeExternal {
		return nil, application.NewInvalidInputError(
			errors.New("EXTERNAL charges are created through the telephone admission path"))
	}

	now := s.clock.Now()
	charge, err := domain.NewCharge(
		uuid.New().String(),
		cmd.GatewayAccountID,
		cmd.Amount,
		cmd.Reference,
		cmd.ReturnURL,
		mode,
		now,
	)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	charge.Description = cmd.Description
	charge.Email = cmd.Email
	charge.DelayedCapture = cmd.DelayedCapture
	charge.Metadata = domain.TruncateMetadata(cmd.Metadata)
	if mode == domain.ModeAgreement {
		if cmd.AgreementID == "" {
			return nil, application.NewInvalidInputError(
				domain.NewMissingRequiredFieldError("agreement id"))
		}
		charge.AgreementID = &cmd.AgreementID
		if cmd.PaymentInstrumentID != "" {
			charge.PaymentInstrumentID = &cmd.PaymentInstrumentID
		}
	}

	if err := s.charges.CreateCharge(ctx, charge, cmd.PaymentProvider, domain.StatusCreated); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, charge.ExternalID, domain.StatusCreated, now)
	return charge, nil
}

// MarkEnteringCardDetails moves a fresh charge to the card-details step,
// the point after which its pinned credential is frozen.
func (s *AdmissionService) MarkEnteringCardDetails(ctx context.Context, externalID string) (*domain.Charge, error) {
	charge, err := s.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	// Frontend status updates are redelivered; a charge already on the
	// card-details step is fine as-is.
	if charge.Status == domain.StatusEnteringCardDetails {
		return charge, nil
	}
	if charge.Status != domain.StatusCreated {
		return nil, application.NewIllegalStateError(
			domain.NewConflictingStateError(domain.StatusCreated, charge.Status))
	}

	updated, err := s.charges.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusEnteringCardDetails)
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			return s.resolveStaleCardDetailsMark(ctx, externalID)
		}
		return nil, err
	}

	s.publisher.Publish(ctx, updated.ExternalID, updated.Status, s.clock.Now())
	return updated, nil
}

func (s *AdmissionService) resolveStaleCardDetailsMark(ctx context.Context, externalID string) (*domain.Charge, error) {
	charge, err := s.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if charge.Status == domain.StatusEnteringCardDetails {
		return charge, nil
	}
	return nil, application.NewIllegalStateError(
		domain.NewConflictingStateError(domain.StatusCreated, charge.Status))
}

// CreateTelephoneCharge admits an externally authorised charge. The call
// is idempotent on (gateway account, provider id): a replay returns the
// stored charge with created=false and writes nothing.
func (s *AdmissionService) CreateTelephoneCharge(ctx context.Context, cmd TelephoneChargeCommand) (*domain.Charge, bool, error) {
	if cmd.ProviderID == "" {
		return nil, false, application.NewInvalidInputError(
			domain.NewMissingRequiredFieldError("provider id"))
	}
	if cmd.ProcessorID == "" {
		return nil, false, application.NewInvalidInputError(
			domain.NewMissingRequiredFieldError("processor id"))
	}

	existing, err := s.charges.FindByProviderID(ctx, cmd.GatewayAccountID, cmd.ProviderID)
	if err == nil {
		return existing, false, nil
	}
	if !domain.IsErrorCode(err, domain.ErrCodeChargeNotFound) {
		return nil, false, err
	}

	terminal, ok := domain.TerminalStatusForOutcome(cmd.OutcomeStatus, cmd.OutcomeCode)
	if !ok {
		return nil, false, application.NewInvalidOutcomeError(cmd.OutcomeStatus)
	}

	now := s.clock.Now()
	charge, err := domain.NewCharge(
		uuid.New().String(),
		cmd.GatewayAccountID,
		cmd.Amount,
		domain.TruncateValue(cmd.Reference),
		"",
		domain.ModeExternal,
		now,
	)
	if err != nil {
		return nil, false, application.NewInvalidInputError(err)
	}

	charge.Status = terminal
	charge.Description = domain.TruncateValue(cmd.Description)
	charge.Metadata = domain.TruncateMetadata(cmd.Metadata)
	processorID := domain.TruncateValue(cmd.ProcessorID)
	providerID := cmd.ProviderID
	charge.ProcessorID = &processorID
	charge.ProviderID = &providerID
	charge.GatewayTransactionID = &providerID

	// The external projection coarsens any failure code narrower than the
	// public set to P0050; keep the supplied code for support tooling.
	if cmd.OutcomeCode != "" && cmd.OutcomeCode != charge.ExternalState().Code {
		code := cmd.OutcomeCode
		charge.SupplementalErrorCode = &code
	}

	// Two events for audit symmetry with web charges: created, then the
	// terminal status.
	err = s.charges.CreateCharge(ctx, charge, "", domain.StatusCreated, terminal)
	if err != nil {
		if errors.Is(err, domain.ErrProviderIDConflict) {
			// Lost a race with an identical admission; serve its result.
			existing, ferr := s.charges.FindByProviderID(ctx, cmd.GatewayAccountID, cmd.ProviderID)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.publisher.Publish(ctx, charge.ExternalID, domain.StatusCreated, now)
	s.publisher.Publish(ctx, charge.ExternalID, terminal, now)
	return charge, true, nil
}
