package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/gwpay/connector/internal/domain"
	"github.com/gwpay/connector/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCharge(t *testing.T, store *memory.Store) *domain.Charge {
	t.Helper()

	charge, err := domain.NewCharge("ch-1", 42, 1000, "ref", "https://merchant.example/return", domain.ModeWeb, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, store.CreateCharge(context.Background(), charge, "", domain.StatusCreated))
	return charge
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("bumps the version and appends an event", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(42, "sandbox", domain.CredentialActive)
		charge := newCharge(t, store)

		updated, err := store.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusEnteringCardDetails)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusEnteringCardDetails, updated.Status)
		assert.Equal(t, charge.Version+1, updated.Version)

		events, err := store.Events(ctx, charge.ID)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("a stale version is refused", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(42, "sandbox", domain.CredentialActive)
		charge := newCharge(t, store)

		_, err := store.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusEnteringCardDetails)
		require.NoError(t, err)

		_, err = store.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusEnteringCardDetails)

		assert.ErrorIs(t, err, domain.ErrStaleVersion)
	})

	t.Run("an illegal edge is refused", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(42, "sandbox", domain.CredentialActive)
		charge := newCharge(t, store)

		_, err := store.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusCaptured)

		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeConflictingState))
	})

	t.Run("a same-status write outside the declared self-edges is refused", func(t *testing.T) {
		store := memory.NewStore()
		store.SeedCredential(42, "sandbox", domain.CredentialActive)
		charge := newCharge(t, store)

		updated, err := store.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusEnteringCardDetails)
		require.NoError(t, err)

		_, err = store.TransitionStatus(ctx, updated.ID, updated.Version, domain.StatusEnteringCardDetails)

		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeConflictingState))
	})

	t.Run("an unknown charge is not found", func(t *testing.T) {
		store := memory.NewStore()

		_, err := store.TransitionStatus(ctx, 99, 1, domain.StatusEnteringCardDetails)

		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeChargeNotFound))
	})
}

func TestCreateChargeProviderIDConflict(t *testing.T) {
	ctx := context.Background()

	store := memory.NewStore()
	store.SeedCredential(42, "sandbox", domain.CredentialActive)

	providerID := "prov-1"
	first, err := domain.NewCharge("ch-1", 42, 1000, "ref", "", domain.ModeExternal, time.Now().UTC())
	require.NoError(t, err)
	first.ProviderID = &providerID
	require.NoError(t, store.CreateCharge(ctx, first, "", domain.StatusCreated))

	second, err := domain.NewCharge("ch-2", 42, 1000, "ref", "", domain.ModeExternal, time.Now().UTC())
	require.NoError(t, err)
	second.ProviderID = &providerID

	err = store.CreateCharge(ctx, second, "", domain.StatusCreated)

	assert.ErrorIs(t, err, domain.ErrProviderIDConflict)
}

func TestFindChargesForCaptureOrdering(t *testing.T) {
	ctx := context.Background()

	store := memory.NewStore()
	store.SeedCredential(42, "sandbox", domain.CredentialActive)

	older, err := domain.NewCharge("ch-old", 42, 1000, "ref", "https://m.example/r", domain.ModeWeb, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	older.Status = domain.StatusCaptureApproved
	require.NoError(t, store.CreateCharge(ctx, older, ""))

	newer, err := domain.NewCharge("ch-new", 42, 1000, "ref", "https://m.example/r", domain.ModeWeb, time.Now().UTC())
	require.NoError(t, err)
	newer.Status = domain.StatusAwaitingCaptureRequest
	require.NoError(t, store.CreateCharge(ctx, newer, ""))

	charges, err := store.FindChargesForCapture(ctx, 10)

	require.NoError(t, err)
	require.Len(t, charges, 2)
	assert.Equal(t, "ch-old", charges[0].ExternalID)
	assert.Equal(t, "ch-new", charges[1].ExternalID)
}
