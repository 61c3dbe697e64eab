// Package worker holds the periodic background orchestrators. Each worker
// is a ticker loop around a one-cycle function; cycles are idempotent by
// construction, so stopping and restarting between cycles needs no
// recovery step.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/application/services"
	"github.com/gwpay/connector/internal/domain"
)

// CaptureWorker drains charges awaiting capture. Each charge is claimed
// with the version guard before any provider call, so two concurrent
// cycles (or a cycle racing an HTTP request) can never capture the same
// charge twice: exactly one claim wins, the rest skip.
type CaptureWorker struct {
	charges     application.ChargeStore
	credentials application.CredentialStore
	providers   application.ProviderResolver
	publisher   application.EventPublisher
	clock       application.Clock
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
}

func NewCaptureWorker(
	charges application.ChargeStore,
	credentials application.CredentialStore,
	providers application.ProviderResolver,
	publisher application.EventPublisher,
	clock application.Clock,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	logger *slog.Logger,
) *CaptureWorker {
	return &CaptureWorker{
		charges:     charges,
		credentials: credentials,
		providers:   providers,
		publisher:   publisher,
		clock:       clock,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (w *CaptureWorker) Start(ctx context.Context) {
	w.logger.Info("capture worker started", "interval", w.interval, "batch_size", w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("capture worker stopping")
			return
		case <-ticker.C:
			result, err := w.RunCycle(ctx)
			if err != nil {
				w.logger.Error("capture cycle failed", "error", err)
				continue
			}
			if result.Success+result.Failed > 0 {
				w.logger.Info("capture cycle finished",
					"captured", result.Success,
					"failed", result.Failed)
			}
		}
	}
}

// RunCycle processes one bounded batch of charges in
// AWAITING_CAPTURE_REQUEST or CAPTURE_APPROVED, oldest first. Charges are
// handled independently; one provider failure never blocks the rest of
// the batch.
func (w *CaptureWorker) RunCycle(ctx context.Context) (services.BatchResult, error) {
	var result services.BatchResult

	charges, err := w.charges.FindChargesForCapture(ctx, w.batchSize)
	if err != nil {
		return result, err
	}

	for _, charge := range charges {
		captured, err := w.captureOne(ctx, charge)
		if err != nil {
			if errors.Is(err, domain.ErrStaleVersion) {
				// Another worker or a request already advanced this
				// charge. Not a failure.
				continue
			}
			w.logger.Error("capture failed",
				"charge_id", charge.ExternalID,
				"attempts", charge.CaptureAttempts+1,
				"error", err)
			result.Failed++
			continue
		}
		if captured {
			result.Success++
		}
	}

	return result, nil
}

// captureOne claims the charge, calls the provider, and settles the
// outcome. Returns true when the charge reached CAPTURED.
func (w *CaptureWorker) captureOne(ctx context.Context, charge *domain.Charge) (bool, error) {
	claimed, err := w.charges.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusCaptureSubmitted)
	if err != nil {
		return false, err
	}
	w.publisher.Publish(ctx, claimed.ExternalID, claimed.Status, w.clock.Now())

	credential, err := w.credentials.FindByID(ctx, claimed.GatewayAccountCredentialID)
	if err != nil {
		return false, w.settleFailure(ctx, claimed, err)
	}

	client, err := w.providers.ClientFor(credential.PaymentProvider)
	if err != nil {
		return false, w.settleFailure(ctx, claimed, err)
	}

	if claimed.GatewayTransactionID == nil {
		return false, w.settleFailure(ctx, claimed,
			domain.NewMissingRequiredFieldError("gateway transaction id"))
	}

	_, err = client.Capture(ctx, application.ProviderCaptureRequest{
		Credential:            *credential,
		ProviderTransactionID: *claimed.GatewayTransactionID,
		Amount:                claimed.Amount,
	})
	if err != nil {
		return false, w.settleFailure(ctx, claimed, err)
	}

	settled, err := w.charges.MarkCaptured(ctx, claimed.ID, claimed.Version, w.clock.Now())
	if err != nil {
		return false, err
	}
	w.publisher.Publish(ctx, settled.ExternalID, settled.Status, w.clock.Now())
	return true, nil
}

// settleFailure decides between a retry and terminal CAPTURE_ERROR. A
// permanent provider fault ends the charge immediately; a transient one is
// returned to CAPTURE_APPROVED until the attempt budget runs out. The
// original error is always propagated so the cycle counts the failure.
func (w *CaptureWorker) settleFailure(ctx context.Context, claimed *domain.Charge, cause error) error {
	category := application.CategorizeError(cause)
	exhausted := claimed.CaptureAttempts+1 >= w.maxAttempts

	if category == application.CategoryPermanent || exhausted {
		failed, err := w.charges.TransitionStatus(ctx, claimed.ID, claimed.Version, domain.StatusCaptureError)
		if err != nil {
			w.logger.Error("could not mark capture error",
				"charge_id", claimed.ExternalID, "error", err)
			return cause
		}
		w.publisher.Publish(ctx, failed.ExternalID, failed.Status, w.clock.Now())
		return cause
	}

	if _, err := w.charges.ScheduleCaptureRetry(ctx, claimed.ID, claimed.Version); err != nil {
		w.logger.Error("could not schedule capture retry",
			"charge_id", claimed.ExternalID, "error", err)
	}
	return cause
}
