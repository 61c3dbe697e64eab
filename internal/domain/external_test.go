package domain_test

import (
	"testing"

	"github.com/gwpay/connector/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalStateOf(t *testing.T) {
	cases := []struct {
		status   domain.ChargeStatus
		external string
		finished bool
		code     string
	}{
		{domain.StatusCreated, "created", false, ""},
		{domain.StatusEnteringCardDetails, "created", false, ""},
		{domain.StatusAuthorisationReady, "started", false, ""},
		{domain.StatusAuthorisation3DSNeeded, "started", false, ""},
		{domain.StatusAuthorisationSuccess, "submitted", false, ""},
		{domain.StatusAwaitingCaptureRequest, "submitted", false, ""},
		{domain.StatusCaptureApproved, "submitted", false, ""},
		{domain.StatusCaptureSubmitted, "submitted", false, ""},
		{domain.StatusCaptured, "success", true, ""},
		{domain.StatusAuthorisationRejected, "failed", true, "P0010"},
		{domain.StatusExpired, "failed", true, "P0020"},
		{domain.StatusAuthorisationError, "error", true, "P0050"},
		{domain.StatusCaptureError, "error", true, "P0050"},
	}

	for _, c := range cases {
		t.Run(string(c.status), func(t *testing.T) {
			state := domain.ExternalStateOf(c.status)
			assert.Equal(t, c.external, state.Status)
			assert.Equal(t, c.finished, state.Finished)
			assert.Equal(t, c.code, state.Code)
			if c.code != "" {
				assert.NotEmpty(t, state.Message)
			}
		})
	}
}

func TestTerminalStatusForOutcome(t *testing.T) {
	t.Run("success lands on CAPTURED", func(t *testing.T) {
		status, ok := domain.TerminalStatusForOutcome("success", "")
		require.True(t, ok)
		assert.Equal(t, domain.StatusCaptured, status)
	})

	t.Run("failed with rejection code lands on AUTHORISATION_REJECTED", func(t *testing.T) {
		status, ok := domain.TerminalStatusForOutcome("failed", domain.CodeRejected)
		require.True(t, ok)
		assert.Equal(t, domain.StatusAuthorisationRejected, status)
	})

	t.Run("failed with expiry code lands on EXPIRED", func(t *testing.T) {
		status, ok := domain.TerminalStatusForOutcome("failed", domain.CodeExpired)
		require.True(t, ok)
		assert.Equal(t, domain.StatusExpired, status)
	})

	t.Run("failed with a narrower code coarsens to the generic error", func(t *testing.T) {
		status, ok := domain.TerminalStatusForOutcome("failed", "P0030")
		require.True(t, ok)
		assert.Equal(t, domain.StatusAuthorisationError, status)
		assert.Equal(t, domain.CodeError, domain.ExternalStateOf(status).Code)
	})

	t.Run("error lands on AUTHORISATION_ERROR", func(t *testing.T) {
		status, ok := domain.TerminalStatusForOutcome("error", "")
		require.True(t, ok)
		assert.Equal(t, domain.StatusAuthorisationError, status)
	})

	t.Run("unknown outcome is refused", func(t *testing.T) {
		_, ok := domain.TerminalStatusForOutcome("pending", "")
		assert.False(t, ok)
	})
}
