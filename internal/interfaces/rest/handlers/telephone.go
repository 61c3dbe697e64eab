package handlers

import (
	"net/http"

	"github.com/gwpay/connector/internal/application/services"
	"github.com/gwpay/connector/internal/interfaces/rest"
)

type TelephoneChargeRequest struct {
	Amount         int64             `json:"amount" validate:"required,gt=0"`
	Reference      string            `json:"reference" validate:"required"`
	Description    string            `json:"description"`
	ProcessorID    string            `json:"processor_id" validate:"required"`
	ProviderID     string            `json:"provider_id" validate:"required"`
	PaymentOutcome PaymentOutcome    `json:"payment_outcome" validate:"required"`
	Metadata       map[string]string `json:"metadata"`
}

type PaymentOutcome struct {
	Status string `json:"status" validate:"required,oneof=success failed error"`
	Code   string `json:"code"`
}

// CreateTelephoneCharge admits a charge resolved over the phone.
// (accountID, provider_id) is the idempotency key: the first request
// creates and answers 201, any replay answers 200 with the same charge.
func (h *Handlers) CreateTelephoneCharge(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var req TelephoneChargeRequest
	if err := h.decode(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	charge, created, err := h.admissionService.CreateTelephoneCharge(r.Context(), services.TelephoneChargeCommand{
		GatewayAccountID: accountID,
		Amount:           req.Amount,
		Reference:        req.Reference,
		Description:      req.Description,
		ProcessorID:      req.ProcessorID,
		ProviderID:       req.ProviderID,
		OutcomeStatus:    req.PaymentOutcome.Status,
		OutcomeCode:      req.PaymentOutcome.Code,
		Metadata:         req.Metadata,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}
	rest.WriteJSON(w, statusCode, rest.ToChargeResponse(charge))
}
