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

// ExpiryWorker sweeps charges that sat too long in a pre-capture-approval
// status. The transition to EXPIRED uses the version read at selection
// time; a stale version means the user or another process moved the charge
// forward in the meantime, and the sweep must never overwrite that.
type ExpiryWorker struct {
	charges   application.ChargeStore
	publisher application.EventPublisher
	clock     application.Clock
	interval  time.Duration
	threshold time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewExpiryWorker(
	charges application.ChargeStore,
	publisher application.EventPublisher,
	clock application.Clock,
	interval time.Duration,
	threshold time.Duration,
	batchSize int,
	logger *slog.Logger,
) *ExpiryWorker {
	return &ExpiryWorker{
		charges:   charges,
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		threshold: threshold,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	w.logger.Info("expiry worker started", "interval", w.interval, "threshold", w.threshold)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry worker stopping")
			return
		case <-ticker.C:
			result, err := w.RunSweep(ctx)
			if err != nil {
				w.logger.Error("expiry sweep failed", "error", err)
				continue
			}
			if result.Success+result.Failed > 0 {
				w.logger.Info("expiry sweep finished",
					"expired", result.Success,
					"failed", result.Failed)
			}
		}
	}
}

// RunSweep expires one batch of idle charges. The age boundary is
// exclusive: a charge created exactly threshold ago is not yet swept, one
// a second older is.
func (w *ExpiryWorker) RunSweep(ctx context.Context) (services.BatchResult, error) {
	var result services.BatchResult

	cutoff := w.clock.Now().Add(-w.threshold)
	charges, err := w.charges.FindChargesForExpiry(ctx, cutoff, w.batchSize)
	if err != nil {
		return result, err
	}

	for _, charge := range charges {
		expired, err := w.charges.TransitionStatus(ctx, charge.ID, charge.Version, domain.StatusExpired)
		if err != nil {
			if errors.Is(err, domain.ErrStaleVersion) {
				// Legitimately progressed since selection. Skip.
				continue
			}
			w.logger.Error("expiry failed",
				"charge_id", charge.ExternalID,
				"status", charge.Status,
				"error", err)
			result.Failed++
			continue
		}
		w.publisher.Publish(ctx, expired.ExternalID, expired.Status, w.clock.Now())
		result.Success++
	}

	return result, nil
}
