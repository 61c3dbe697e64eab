package services

import (
	"context"
	"errors"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/domain"
)

// CaptureService handles the delayed-capture approval step. The actual
// provider capture call belongs to the background capture processor; this
// service only moves a charge into the processor's queue.
type CaptureService struct {
	charges   application.ChargeStore
	publisher application.EventPublisher
	clock     application.Clock
}

func NewCaptureService(
	charges application.ChargeStore,
	publisher application.EventPublisher,
	clock application.Clock,
) *CaptureService {
	return &CaptureService{
		charges:   charges,
		publisher: publisher,
		clock:     clock,
	}
}

// ApproveCapture marks a delayed-capture charge ready for capture. Legal
// only from AWAITING_CAPTURE_REQUEST, or idempotently from
// CAPTURE_APPROVED; any other status is a conflict naming the expected and
// actual statuses.
func (s *CaptureService) ApproveCapture(ctx context.Context, externalID string) (*domain.Charge, error) {
	charge, err := s.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	switch charge.Status {
	case domain.StatusCaptureApproved:
		return charge, nil
	case domain.StatusAwaitingCaptureRequest:
	default:
		return nil, application.NewCaptureConflictError(
			domain.NewConflictingStateError(domain.StatusAwaitingCaptureRequest, charge.Status))
	}

	updated, err := s.charges.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusCaptureApproved)
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			return s.resolveStaleApproval(ctx, externalID)
		}
		return nil, err
	}

	s.publisher.Publish(ctx, updated.ExternalID, updated.Status, s.clock.Now())
	return updated, nil
}

func (s *CaptureService) resolveStaleApproval(ctx context.Context, externalID string) (*domain.Charge, error) {
	charge, err := s.charges.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	// The capture processor may have claimed or even settled the charge
	// between our read and our write; from the caller's point of view the
	// approval holds.
	switch charge.Status {
	case domain.StatusCaptureApproved, domain.StatusCaptureSubmitted, domain.StatusCaptured:
		return charge, nil
	}
	return nil, application.NewCaptureConflictError(
		domain.NewConflictingStateError(domain.StatusAwaitingCaptureRequest, charge.Status))
}
