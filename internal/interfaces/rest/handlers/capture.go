package handlers

import (
	"net/http"

	"github.com/gwpay/connector/internal/interfaces/rest"
)

// ApproveCapture marks a delayed-capture charge ready for the background
// capture cycle. Responds 204; approving twice is a no-op.
func (h *Handlers) ApproveCapture(w http.ResponseWriter, r *http.Request) {
	if _, err := h.accountID(r); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	if _, err := h.captureService.ApproveCapture(r.Context(), r.PathValue("chargeID")); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
