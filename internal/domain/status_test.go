package domain_test

import (
	"testing"

	"github.com/gwpay/connector/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Run("allows every edge of the lifecycle", func(t *testing.T) {
		edges := []struct {
			from, to domain.ChargeStatus
		}{
			{domain.StatusCreated, domain.StatusEnteringCardDetails},
			{domain.StatusEnteringCardDetails, domain.StatusAuthorisationReady},
			{domain.StatusAuthorisationReady, domain.StatusAuthorisationSuccess},
			{domain.StatusAuthorisationReady, domain.StatusAuthorisationRejected},
			{domain.StatusAuthorisationReady, domain.StatusAuthorisationError},
			{domain.StatusAuthorisationReady, domain.StatusAuthorisation3DSNeeded},
			{domain.StatusAuthorisation3DSNeeded, domain.StatusAuthorisationSuccess},
			{domain.StatusAuthorisationSuccess, domain.StatusAwaitingCaptureRequest},
			{domain.StatusAuthorisationSuccess, domain.StatusCaptureApproved},
			{domain.StatusAwaitingCaptureRequest, domain.StatusCaptureApproved},
			{domain.StatusAwaitingCaptureRequest, domain.StatusCaptureSubmitted},
			{domain.StatusCaptureApproved, domain.StatusCaptureSubmitted},
			{domain.StatusCaptureSubmitted, domain.StatusCaptured},
			{domain.StatusCaptureSubmitted, domain.StatusCaptureApproved},
			{domain.StatusCaptureSubmitted, domain.StatusCaptureError},
		}

		for _, e := range edges {
			assert.True(t, domain.CanTransition(e.from, e.to), "%s -> %s", e.from, e.to)
		}
	})

	t.Run("allows expiry from every pre-capture-approval status", func(t *testing.T) {
		for _, from := range domain.ExpirableStatuses {
			assert.True(t, domain.CanTransition(from, domain.StatusExpired), "%s -> EXPIRED", from)
		}
	})

	t.Run("rejects expiry once capture is approved", func(t *testing.T) {
		assert.False(t, domain.CanTransition(domain.StatusCaptureApproved, domain.StatusExpired))
		assert.False(t, domain.CanTransition(domain.StatusCaptureSubmitted, domain.StatusExpired))
		assert.False(t, domain.CanTransition(domain.StatusCaptured, domain.StatusExpired))
	})

	t.Run("rejects skips and backward moves", func(t *testing.T) {
		assert.False(t, domain.CanTransition(domain.StatusCreated, domain.StatusAuthorisationReady))
		assert.False(t, domain.CanTransition(domain.StatusCreated, domain.StatusCaptured))
		assert.False(t, domain.CanTransition(domain.StatusAuthorisationSuccess, domain.StatusEnteringCardDetails))
		assert.False(t, domain.CanTransition(domain.StatusCaptured, domain.StatusCaptureSubmitted))
		assert.False(t, domain.CanTransition(domain.StatusAuthorisationRejected, domain.StatusAuthorisationReady))
	})

	t.Run("capture approval is idempotent", func(t *testing.T) {
		assert.True(t, domain.CanTransition(domain.StatusCaptureApproved, domain.StatusCaptureApproved))
		assert.True(t, domain.CanTransition(domain.StatusAwaitingCaptureRequest, domain.StatusAwaitingCaptureRequest))
		assert.False(t, domain.CanTransition(domain.StatusCaptured, domain.StatusCaptured))
	})

	t.Run("nothing leaves a terminal status", func(t *testing.T) {
		terminals := []domain.ChargeStatus{
			domain.StatusCaptured,
			domain.StatusCaptureError,
			domain.StatusExpired,
			domain.StatusAuthorisationRejected,
			domain.StatusAuthorisationError,
		}
		targets := []domain.ChargeStatus{
			domain.StatusCreated,
			domain.StatusAuthorisationReady,
			domain.StatusCaptureSubmitted,
			domain.StatusExpired,
		}
		for _, from := range terminals {
			assert.True(t, from.IsTerminal())
			for _, to := range targets {
				if from == to {
					continue
				}
				assert.False(t, domain.CanTransition(from, to), "%s -> %s", from, to)
			}
		}
	})
}

func TestIsFailure(t *testing.T) {
	assert.True(t, domain.StatusAuthorisationRejected.IsFailure())
	assert.True(t, domain.StatusAuthorisationError.IsFailure())
	assert.True(t, domain.StatusCaptureError.IsFailure())
	assert.True(t, domain.StatusExpired.IsFailure())

	assert.False(t, domain.StatusCaptured.IsFailure())
	assert.False(t, domain.StatusCreated.IsFailure())
	assert.False(t, domain.StatusAuthorisationSuccess.IsFailure())
}
