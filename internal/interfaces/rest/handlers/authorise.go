package handlers

import (
	"net/http"

	"github.com/gwpay/connector/internal/domain"
	"github.com/gwpay/connector/internal/interfaces/rest"
)

type AuthoriseRequest struct {
	CardNumber     string `json:"card_number" validate:"required,min=12,max=19"`
	CVC            string `json:"cvc" validate:"required,min=3,max=4"`
	CardholderName string `json:"cardholder_name" validate:"required,max=255"`
	ExpiryMonth    int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear     int    `json:"expiry_year" validate:"required,min=2000"`
	AddressLine1   string `json:"address_line1" validate:"max=255"`
	AddressLine2   string `json:"address_line2" validate:"max=255"`
	City           string `json:"city" validate:"max=255"`
	Postcode       string `json:"postcode" validate:"max=25"`
	Country        string `json:"country" validate:"omitempty,len=2"`
}

// Authorise submits card details for an ENTERING_CARD_DETAILS charge.
// Responds 200 with the resolved state, 202 when another authorisation
// already holds the claim, and 409 when the charge is in the wrong state.
func (h *Handlers) Authorise(w http.ResponseWriter, r *http.Request) {
	var req AuthoriseRequest
	if err := h.decode(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	card := domain.CardDetails{
		CardNumber:     req.CardNumber,
		CVC:            req.CVC,
		CardholderName: req.CardholderName,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		City:           req.City,
		Postcode:       req.Postcode,
		Country:        req.Country,
	}

	charge, err := h.authoriseService.Authorise(r.Context(), r.PathValue("chargeID"), card)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToChargeResponse(charge))
}
