// Package events notifies downstream consumers of charge transitions.
// Publication is fire-and-forget: a failed delivery is logged and dropped,
// never blocking the state transition that triggered it.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gwpay/connector/internal/domain"
)

type eventBody struct {
	ChargeID   string    `json:"charge_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WebhookPublisher POSTs each event to a single configured endpoint.
type WebhookPublisher struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWebhookPublisher(endpoint string, timeout time.Duration, logger *slog.Logger) *WebhookPublisher {
	return &WebhookPublisher{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, chargeExternalID string, status domain.ChargeStatus, occurredAt time.Time) {
	body, err := json.Marshal(eventBody{
		ChargeID:   chargeExternalID,
		EventType:  string(status),
		OccurredAt: occurredAt,
	})
	if err != nil {
		p.logger.Error("event marshal failed", "charge_id", chargeExternalID, "error", err)
		return
	}

	// Detach from the request context so a finished request does not
	// cancel an in-flight notification.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.httpClient.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			p.logger.Error("event request failed", "charge_id", chargeExternalID, "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			p.logger.Error("event publish failed",
				"charge_id", chargeExternalID,
				"event_type", status,
				"error", err)
			return
		}
		resp.Body.Close()

		if resp.StatusCode >= 300 {
			p.logger.Error("event publish rejected",
				"charge_id", chargeExternalID,
				"event_type", status,
				"status_code", resp.StatusCode)
		}
	}()
}

// NopPublisher drops every event. Used when no endpoint is configured and
// in tests that do not assert on notifications.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, domain.ChargeStatus, time.Time) {}
