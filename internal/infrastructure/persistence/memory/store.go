// Package memory implements the persistence ports on in-process maps.
// It mirrors the database semantics exactly, including conditional
// versioned writes, so the services and workers can be exercised without
// a running PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gwpay/connector/internal/domain"
)

type Store struct {
	mu sync.Mutex

	charges     map[int64]*domain.Charge
	events      map[int64][]domain.ChargeEvent
	credentials map[int64]*domain.GatewayAccountCredential

	nextChargeID     int64
	nextEventID      int64
	nextCredentialID int64
}

func NewStore() *Store {
	return &Store{
		charges:     make(map[int64]*domain.Charge),
		events:      make(map[int64][]domain.ChargeEvent),
		credentials: make(map[int64]*domain.GatewayAccountCredential),
	}
}

// SeedCredential registers a credential and returns it. Test setup only
// ever needs ACTIVE ones, but any state is accepted.
func (s *Store) SeedCredential(gatewayAccountID int64, provider string, state domain.GatewayCredentialState) *domain.GatewayAccountCredential {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextCredentialID++
	c := &domain.GatewayAccountCredential{
		ID:               s.nextCredentialID,
		GatewayAccountID: gatewayAccountID,
		PaymentProvider:  provider,
		State:            state,
		CreatedAt:        time.Now().UTC(),
	}
	s.credentials[c.ID] = c
	return c
}

func (s *Store) CreateCharge(ctx context.Context, charge *domain.Charge, providerOverride string, events ...domain.ChargeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*domain.GatewayAccountCredential
	for _, c := range s.credentials {
		if c.GatewayAccountID != charge.GatewayAccountID || c.State != domain.CredentialActive {
			continue
		}
		if providerOverride != "" && c.PaymentProvider != providerOverride {
			continue
		}
		active = append(active, c)
	}
	if len(active) != 1 {
		return domain.NewNoActiveCredentialError(charge.GatewayAccountID, providerOverride)
	}

	if charge.ProviderID != nil {
		for _, existing := range s.charges {
			if existing.GatewayAccountID == charge.GatewayAccountID &&
				existing.ProviderID != nil && *existing.ProviderID == *charge.ProviderID {
				return domain.ErrProviderIDConflict
			}
		}
	}

	charge.GatewayAccountCredentialID = active[0].ID
	charge.PaymentProvider = active[0].PaymentProvider

	s.nextChargeID++
	charge.ID = s.nextChargeID
	charge.Version = 1
	s.charges[charge.ID] = copyCharge(charge)

	for _, status := range events {
		s.appendEventLocked(charge.ID, status, charge.CreatedAt)
	}
	return nil
}

func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.charges {
		if c.ExternalID == externalID {
			return copyCharge(c), nil
		}
	}
	return nil, domain.NewChargeNotFoundError(externalID)
}

func (s *Store) FindByProviderID(ctx context.Context, gatewayAccountID int64, providerID string) (*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.charges {
		if c.GatewayAccountID == gatewayAccountID && c.ProviderID != nil && *c.ProviderID == providerID {
			return copyCharge(c), nil
		}
	}
	return nil, domain.NewChargeNotFoundError(providerID)
}

func (s *Store) TransitionStatus(ctx context.Context, chargeID, expectedVersion int64, to domain.ChargeStatus) (*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(chargeID, expectedVersion, to, time.Now().UTC())
}

func (s *Store) RecordAuthorisationOutcome(ctx context.Context, chargeID, expectedVersion int64, to domain.ChargeStatus, gatewayTransactionID string, card *domain.CardDetails) (*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.transitionLocked(chargeID, expectedVersion, to, time.Now().UTC()); err != nil {
		return nil, err
	}

	stored := s.charges[chargeID]
	if gatewayTransactionID != "" {
		id := gatewayTransactionID
		stored.GatewayTransactionID = &id
	}
	if card != nil {
		c := *card
		c.CVC = ""
		stored.CardDetails = &c
	}
	return copyCharge(stored), nil
}

func (s *Store) MarkCaptured(ctx context.Context, chargeID, expectedVersion int64, submittedAt time.Time) (*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.transitionLocked(chargeID, expectedVersion, domain.StatusCaptured, submittedAt)
	if err != nil {
		return nil, err
	}
	at := submittedAt
	s.charges[chargeID].CaptureSubmittedAt = &at
	updated.CaptureSubmittedAt = &at
	return updated, nil
}

func (s *Store) ScheduleCaptureRetry(ctx context.Context, chargeID, expectedVersion int64) (*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.transitionLocked(chargeID, expectedVersion, domain.StatusCaptureApproved, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.charges[chargeID].CaptureAttempts++
	updated.CaptureAttempts = s.charges[chargeID].CaptureAttempts
	return updated, nil
}

func (s *Store) FindChargesForCapture(ctx context.Context, limit int) ([]*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Charge
	for _, c := range s.charges {
		for _, status := range domain.CaptureReadyStatuses {
			if c.Status == status {
				out = append(out, copyCharge(c))
				break
			}
		}
	}
	sortByAge(out)
	return truncateBatch(out, limit), nil
}

func (s *Store) FindChargesForExpiry(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Charge
	for _, c := range s.charges {
		if !c.CreatedAt.Before(createdBefore) {
			continue
		}
		for _, status := range domain.ExpirableStatuses {
			if c.Status == status {
				out = append(out, copyCharge(c))
				break
			}
		}
	}
	sortByAge(out)
	return truncateBatch(out, limit), nil
}

func (s *Store) UpdateEmail(ctx context.Context, chargeID int64, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.charges[chargeID]
	if !ok {
		return domain.NewChargeNotFoundError(fmt.Sprintf("%d", chargeID))
	}
	c.Email = email
	return nil
}

func (s *Store) UpdateCanRetry(ctx context.Context, chargeID int64, canRetry bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.charges[chargeID]
	if !ok {
		return domain.NewChargeNotFoundError(fmt.Sprintf("%d", chargeID))
	}
	v := canRetry
	c.CanRetry = &v
	return nil
}

func (s *Store) Events(ctx context.Context, chargeID int64) ([]domain.ChargeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.events[chargeID]
	out := make([]domain.ChargeEvent, len(events))
	copy(out, events)
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, credentialID int64) (*domain.GatewayAccountCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[credentialID]
	if !ok {
		return nil, domain.NewNoActiveCredentialError(0, "")
	}
	out := *c
	return &out, nil
}

func (s *Store) transitionLocked(chargeID, expectedVersion int64, to domain.ChargeStatus, at time.Time) (*domain.Charge, error) {
	c, ok := s.charges[chargeID]
	if !ok {
		return nil, domain.NewChargeNotFoundError(fmt.Sprintf("%d", chargeID))
	}
	if c.Version != expectedVersion {
		return nil, domain.ErrStaleVersion
	}
	// The edge table is the single authority, including self-edges.
	if !domain.CanTransition(c.Status, to) {
		return nil, domain.NewInvalidTransitionError(c.Status, to)
	}

	c.Status = to
	c.Version++
	s.appendEventLocked(chargeID, to, at)
	return copyCharge(c), nil
}

func (s *Store) appendEventLocked(chargeID int64, status domain.ChargeStatus, at time.Time) {
	s.nextEventID++
	s.events[chargeID] = append(s.events[chargeID], domain.ChargeEvent{
		ID:        s.nextEventID,
		ChargeID:  chargeID,
		Status:    status,
		CreatedAt: at,
	})
}

func copyCharge(c *domain.Charge) *domain.Charge {
	out := *c
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	if c.CardDetails != nil {
		card := *c.CardDetails
		out.CardDetails = &card
	}
	return &out
}

func sortByAge(charges []*domain.Charge) {
	sort.Slice(charges, func(i, j int) bool {
		if charges[i].CreatedAt.Equal(charges[j].CreatedAt) {
			return charges[i].ID < charges[j].ID
		}
		return charges[i].CreatedAt.Before(charges[j].CreatedAt)
	})
}

func truncateBatch(charges []*domain.Charge, limit int) []*domain.Charge {
	if limit > 0 && len(charges) > limit {
		return charges[:limit]
	}
	return charges
}
