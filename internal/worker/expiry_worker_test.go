package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/domain"
	"github.com/gwpay/connector/internal/infrastructure/events"
	"github.com/gwpay/connector/internal/infrastructure/persistence/memory"
	"github.com/gwpay/connector/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExpiryWorker(store *memory.Store, clock application.Clock, threshold time.Duration) *worker.ExpiryWorker {
	return worker.NewExpiryWorker(
		store,
		events.NopPublisher{},
		clock,
		time.Minute,
		threshold,
		10,
		testLogger(),
	)
}

// seedCharge inserts a charge with a fixed age and status.
func seedCharge(t *testing.T, store *memory.Store, status domain.ChargeStatus, createdAt time.Time) *domain.Charge {
	t.Helper()

	charge, err := domain.NewCharge(
		"exp-"+string(status)+createdAt.Format(time.RFC3339Nano),
		accountID, 1000, "ref-expiry", "https://merchant.example/return", domain.ModeWeb, createdAt)
	require.NoError(t, err)

	err = store.CreateCharge(context.Background(), charge, "", domain.StatusCreated)
	require.NoError(t, err)

	// Walk the status forward without touching CreatedAt.
	for _, step := range pathTo(status) {
		charge, err = store.TransitionStatus(context.Background(), charge.ID, charge.Version, step)
		require.NoError(t, err)
	}
	return charge
}

// pathTo lists the transitions from CREATED to the target status.
func pathTo(status domain.ChargeStatus) []domain.ChargeStatus {
	switch status {
	case domain.StatusCreated:
		return nil
	case domain.StatusEnteringCardDetails:
		return []domain.ChargeStatus{domain.StatusEnteringCardDetails}
	case domain.StatusAuthorisationReady:
		return []domain.ChargeStatus{domain.StatusEnteringCardDetails, domain.StatusAuthorisationReady}
	case domain.StatusAwaitingCaptureRequest:
		return []domain.ChargeStatus{
			domain.StatusEnteringCardDetails,
			domain.StatusAuthorisationReady,
			domain.StatusAuthorisationSuccess,
			domain.StatusAwaitingCaptureRequest,
		}
	case domain.StatusCaptureApproved:
		return []domain.ChargeStatus{
			domain.StatusEnteringCardDetails,
			domain.StatusAuthorisationReady,
			domain.StatusAuthorisationSuccess,
			domain.StatusCaptureApproved,
		}
	default:
		panic("no path to " + string(status))
	}
}

func TestExpiryWorkerRunSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	threshold := time.Hour

	t.Run("expires idle charges past the threshold", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(accountID, "sandbox", domain.CredentialActive)
		clock := &fakeClock{now: now}

		stale := seedCharge(t, store, domain.StatusEnteringCardDetails, now.Add(-2*time.Hour))
		fresh := seedCharge(t, store, domain.StatusEnteringCardDetails, now.Add(-10*time.Minute))

		w := newExpiryWorker(store, clock, threshold)
		result, err := w.RunSweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Success)
		assert.Equal(t, 0, result.Failed)

		expired, err := store.FindByExternalID(ctx, stale.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, expired.Status)

		kept, err := store.FindByExternalID(ctx, fresh.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusEnteringCardDetails, kept.Status)
	})

	t.Run("the age boundary is exclusive", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(accountID, "sandbox", domain.CredentialActive)
		clock := &fakeClock{now: now}

		atBoundary := seedCharge(t, store, domain.StatusCreated, now.Add(-threshold))
		justPast := seedCharge(t, store, domain.StatusCreated, now.Add(-threshold-time.Second))

		w := newExpiryWorker(store, clock, threshold)
		result, err := w.RunSweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Success)

		kept, err := store.FindByExternalID(ctx, atBoundary.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCreated, kept.Status)

		swept, err := store.FindByExternalID(ctx, justPast.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, swept.Status)
	})

	t.Run("an awaiting capture charge expires, an approved one does not", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(accountID, "sandbox", domain.CredentialActive)
		clock := &fakeClock{now: now}

		awaiting := seedCharge(t, store, domain.StatusAwaitingCaptureRequest, now.Add(-2*time.Hour))
		approved := seedCharge(t, store, domain.StatusCaptureApproved, now.Add(-2*time.Hour))

		w := newExpiryWorker(store, clock, threshold)
		result, err := w.RunSweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Success)
		assert.Equal(t, 0, result.Failed)

		expired, err := store.FindByExternalID(ctx, awaiting.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, expired.Status)

		kept, err := store.FindByExternalID(ctx, approved.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCaptureApproved, kept.Status)
	})

	t.Run("advancing the clock sweeps previously fresh charges", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(accountID, "sandbox", domain.CredentialActive)
		clock := &fakeClock{now: now}

		charge := seedCharge(t, store, domain.StatusCreated, now.Add(-30*time.Minute))

		w := newExpiryWorker(store, clock, threshold)

		result, err := w.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Success)

		clock.Advance(31 * time.Minute)

		result, err = w.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Success)

		swept, err := store.FindByExternalID(ctx, charge.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, swept.Status)
	})
}
