package domain_test

import (
	"testing"

	"github.com/gwpay/connector/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCardDetailsSanitise(t *testing.T) {
	t.Run("masks the PAN keeping first six and last four", func(t *testing.T) {
		card := domain.CardDetails{CardNumber: "4444333322221111"}

		out := card.Sanitise()

		assert.Equal(t, "444433******1111", out.CardNumber)
	})

	t.Run("masks non-PAN fields with more than ten digits", func(t *testing.T) {
		card := domain.CardDetails{
			AddressLine1: "building 12345678901 annex",
		}

		out := card.Sanitise()

		assert.Equal(t, "building *********** annex", out.AddressLine1)
	})

	t.Run("leaves fields with ten or fewer digits untouched", func(t *testing.T) {
		card := domain.CardDetails{
			AddressLine1: "12 High Street",
			Postcode:     "EC1A 1BB",
			City:         "London",
		}

		out := card.Sanitise()

		assert.Equal(t, "12 High Street", out.AddressLine1)
		assert.Equal(t, "EC1A 1BB", out.Postcode)
		assert.Equal(t, "London", out.City)
	})

	t.Run("does not modify the original", func(t *testing.T) {
		card := domain.CardDetails{CardNumber: "4444333322221111"}

		card.Sanitise()

		assert.Equal(t, "4444333322221111", card.CardNumber)
	})
}

func TestCardDetailsDigits(t *testing.T) {
	card := domain.CardDetails{CardNumber: "4444 3333 2222 1111"}

	assert.Equal(t, "444433", card.FirstSix())
	assert.Equal(t, "1111", card.LastFour())
}
