package rest

import (
	"time"

	"github.com/gwpay/connector/internal/domain"
)

// ChargeResponse is the external representation of a charge. Status carries
// the coarse projection, never the internal lifecycle value.
type ChargeResponse struct {
	ChargeID          string            `json:"charge_id"`
	Amount            int64             `json:"amount"`
	Reference         string            `json:"reference"`
	Description       string            `json:"description,omitempty"`
	Email             string            `json:"email,omitempty"`
	ReturnURL         string            `json:"return_url,omitempty"`
	PaymentProvider   string            `json:"payment_provider"`
	AuthorisationMode string            `json:"authorisation_mode"`
	DelayedCapture    bool              `json:"delayed_capture"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	State             StateResponse     `json:"state"`
	CardDetails       *CardResponse     `json:"card_details,omitempty"`
	ProcessorID       string            `json:"processor_id,omitempty"`
	ProviderID        string            `json:"provider_id,omitempty"`
	CreatedAt         time.Time         `json:"created_date"`
	CaptureSubmitTime *time.Time        `json:"capture_submit_time,omitempty"`
}

type StateResponse struct {
	Status   string `json:"status"`
	Finished bool   `json:"finished"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
	// CanRetry holds a *bool so that an undetermined flag serialises as
	// null while charges outside retry scope omit the key entirely.
	CanRetry any `json:"can_retry,omitempty"`
}

type CardResponse struct {
	CardholderName string `json:"cardholder_name,omitempty"`
	FirstSix       string `json:"first_digits_card_number,omitempty"`
	LastFour       string `json:"last_digits_card_number,omitempty"`
}

type EventResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func ToChargeResponse(c *domain.Charge) ChargeResponse {
	state := c.ExternalState()

	resp := ChargeResponse{
		ChargeID:          c.ExternalID,
		Amount:            c.Amount,
		Reference:         c.Reference,
		Description:       c.Description,
		Email:             c.Email,
		ReturnURL:         c.ReturnURL,
		PaymentProvider:   c.PaymentProvider,
		AuthorisationMode: string(c.AuthorisationMode),
		DelayedCapture:    c.DelayedCapture,
		Metadata:          c.Metadata,
		State: StateResponse{
			Status:   state.Status,
			Finished: state.Finished,
			Code:     state.Code,
			Message:  state.Message,
		},
		CreatedAt:         c.CreatedAt,
		CaptureSubmitTime: c.CaptureSubmittedAt,
	}

	if c.CanRetryVisible() {
		resp.State.CanRetry = c.CanRetry
	}

	if c.CardDetails != nil {
		resp.CardDetails = &CardResponse{
			CardholderName: c.CardDetails.CardholderName,
			FirstSix:       c.CardDetails.FirstSix(),
			LastFour:       c.CardDetails.LastFour(),
		}
	}

	if c.ProcessorID != nil {
		resp.ProcessorID = *c.ProcessorID
	}
	if c.ProviderID != nil {
		resp.ProviderID = *c.ProviderID
	}

	return resp
}

func ToEventResponses(events []domain.ChargeEvent) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = EventResponse{
			Status:    string(e.Status),
			Timestamp: e.CreatedAt,
		}
	}
	return out
}
