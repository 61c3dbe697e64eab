package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/config"
)

// RetryingClient retries transient capture faults in-call before the
// charge-level attempt counter gets involved. Authorise is deliberately
// passed through untouched: an authorisation must never be re-dispatched
// automatically, the in-progress guard owns that path.
type RetryingClient struct {
	inner      application.ProviderClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryingClient(inner application.ProviderClient, cfg config.RetryConfig) application.ProviderClient {
	return &RetryingClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryingClient) Authorise(ctx context.Context, req application.ProviderAuthoriseRequest) (*application.ProviderAuthoriseResponse, error) {
	return r.inner.Authorise(ctx, req)
}

func (r *RetryingClient) Capture(ctx context.Context, req application.ProviderCaptureRequest) (*application.ProviderCaptureResponse, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := r.inner.Capture(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	if provErr, ok := application.IsProviderError(err); ok {
		return provErr.IsRetryable()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryingClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}
