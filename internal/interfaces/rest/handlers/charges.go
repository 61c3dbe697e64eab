package handlers

import (
	"net/http"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/application/services"
	"github.com/gwpay/connector/internal/interfaces/rest"
)

type CreateChargeRequest struct {
	Amount              int64             `json:"amount" validate:"required,gt=0"`
	Reference           string            `json:"reference" validate:"required,max=255"`
	Description         string            `json:"description" validate:"max=255"`
	Email               string            `json:"email" validate:"omitempty,email"`
	ReturnURL           string            `json:"return_url" validate:"omitempty,url"`
	AuthorisationMode   string            `json:"authorisation_mode"`
	DelayedCapture      bool              `json:"delayed_capture"`
	PaymentProvider     string            `json:"payment_provider"`
	Metadata            map[string]string `json:"metadata"`
	AgreementID         string            `json:"agreement_id"`
	PaymentInstrumentID string            `json:"payment_instrument_id"`
}

type PatchChargeRequest struct {
	Op    string `json:"op" validate:"required,eq=replace"`
	Path  string `json:"path" validate:"required,eq=email"`
	Value string `json:"value" validate:"required,email"`
}

type CanRetryRequest struct {
	CanRetry *bool `json:"can_retry" validate:"required"`
}

type UpdateStatusRequest struct {
	NewStatus string `json:"new_status" validate:"required"`
}

func (h *Handlers) CreateCharge(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var req CreateChargeRequest
	if err := h.decode(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	charge, err := h.admissionService.CreateCharge(r.Context(), services.CreateChargeCommand{
		GatewayAccountID:    accountID,
		Amount:              req.Amount,
		Reference:           req.Reference,
		Description:         req.Description,
		Email:               req.Email,
		ReturnURL:           req.ReturnURL,
		AuthorisationMode:   req.AuthorisationMode,
		DelayedCapture:      req.DelayedCapture,
		PaymentProvider:     req.PaymentProvider,
		Metadata:            req.Metadata,
		AgreementID:         req.AgreementID,
		PaymentInstrumentID: req.PaymentInstrumentID,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.ToChargeResponse(charge))
}

func (h *Handlers) GetCharge(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	charge, err := h.queryService.FindByExternalID(r.Context(), accountID, r.PathValue("chargeID"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToChargeResponse(charge))
}

// PatchCharge accepts a single replace operation on the email attribute.
// No other attribute is patchable.
func (h *Handlers) PatchCharge(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var req PatchChargeRequest
	if err := h.decode(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	charge, err := h.queryService.PatchEmail(r.Context(), accountID, r.PathValue("chargeID"), req.Value)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToChargeResponse(charge))
}

func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	chargeID := r.PathValue("chargeID")
	events, err := h.queryService.Events(r.Context(), accountID, chargeID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"charge_id": chargeID,
		"events":    rest.ToEventResponses(events),
	})
}

func (h *Handlers) SetCanRetry(w http.ResponseWriter, r *http.Request) {
	accountID, err := h.accountID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var req CanRetryRequest
	if err := h.decode(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	charge, err := h.queryService.SetCanRetry(r.Context(), accountID, r.PathValue("chargeID"), *req.CanRetry)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToChargeResponse(charge))
}

// UpdateFrontendStatus moves a charge from CREATED to ENTERING_CARD_DETAILS
// when the payment page is first served.
func (h *Handlers) UpdateFrontendStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := h.decode(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	if req.NewStatus != "ENTERING_CARD_DETAILS" {
		rest.WriteError(w, application.NewInvalidOutcomeError(req.NewStatus), h.logger)
		return
	}

	charge, err := h.admissionService.MarkEnteringCardDetails(r.Context(), r.PathValue("chargeID"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToChargeResponse(charge))
}
