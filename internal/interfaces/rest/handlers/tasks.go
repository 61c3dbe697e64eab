package handlers

import (
	"net/http"

	"github.com/gwpay/connector/internal/interfaces/rest"
)

// RunExpirySweep runs one expiry sweep on demand and reports the counts.
// The same sweep also runs on the background interval.
func (h *Handlers) RunExpirySweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.expiryWorker.RunSweep(r.Context())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}

// RunCaptureCycle runs one capture cycle on demand and reports the counts.
func (h *Handlers) RunCaptureCycle(w http.ResponseWriter, r *http.Request) {
	result, err := h.captureWorker.RunCycle(r.Context())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}
