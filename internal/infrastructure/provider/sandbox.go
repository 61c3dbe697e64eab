package provider

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gwpay/connector/internal/application"
)

// Magic card numbers recognised by the sandbox.
const (
	sandboxCardAuthorised = "4444333322221111"
	sandboxCardRejected   = "4000000000000002"
	sandboxCardError      = "4000000000000119"
	sandboxCard3DS        = "4000000000000101"
)

// SandboxClient is a deterministic in-process provider used in dev
// environments and tests. Behaviour is driven by magic card numbers;
// everything else authorises and captures cleanly.
type SandboxClient struct {
	captureCalls atomic.Int64
}

func NewSandboxClient() *SandboxClient {
	return &SandboxClient{}
}

func (s *SandboxClient) Authorise(ctx context.Context, req application.ProviderAuthoriseRequest) (*application.ProviderAuthoriseResponse, error) {
	switch req.Card.CardNumber {
	case sandboxCardRejected:
		return &application.ProviderAuthoriseResponse{
			Outcome: application.OutcomeRejected,
		}, nil
	case sandboxCardError:
		return nil, &application.ProviderError{
			Code:       "internal_error",
			Message:    "sandbox simulated fault",
			StatusCode: http.StatusInternalServerError,
		}
	case sandboxCard3DS:
		return &application.ProviderAuthoriseResponse{
			Outcome:               application.OutcomeRequires3DS,
			ProviderTransactionID: "sandbox-" + uuid.New().String(),
			ThreeDSIssuerURL:      "https://sandbox.invalid/3ds",
		}, nil
	default:
		return &application.ProviderAuthoriseResponse{
			Outcome:               application.OutcomeAuthorised,
			ProviderTransactionID: "sandbox-" + uuid.New().String(),
		}, nil
	}
}

func (s *SandboxClient) Capture(ctx context.Context, req application.ProviderCaptureRequest) (*application.ProviderCaptureResponse, error) {
	s.captureCalls.Add(1)
	return &application.ProviderCaptureResponse{
		Outcome: application.OutcomeAuthorised,
	}, nil
}

// CaptureCalls reports how many capture calls the sandbox has served.
func (s *SandboxClient) CaptureCalls() int64 {
	return s.captureCalls.Load()
}
