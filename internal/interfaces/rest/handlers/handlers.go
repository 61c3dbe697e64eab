package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator"
	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/application/services"
	"github.com/gwpay/connector/internal/interfaces/rest"
	"github.com/gwpay/connector/internal/worker"
)

var validate = validator.New()

type Handlers struct {
	admissionService *services.AdmissionService
	authoriseService *services.AuthoriseService
	captureService   *services.CaptureService
	queryService     *services.QueryService
	captureWorker    *worker.CaptureWorker
	expiryWorker     *worker.ExpiryWorker
	logger           *slog.Logger
}

func NewHandlers(
	admissionService *services.AdmissionService,
	authoriseService *services.AuthoriseService,
	captureService *services.CaptureService,
	queryService *services.QueryService,
	captureWorker *worker.CaptureWorker,
	expiryWorker *worker.ExpiryWorker,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		admissionService: admissionService,
		authoriseService: authoriseService,
		captureService:   captureService,
		queryService:     queryService,
		captureWorker:    captureWorker,
		expiryWorker:     expiryWorker,
		logger:           logger,
	}
}

// Register wires every route onto the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/api/accounts/{accountID}/charges", h.CreateCharge)
	mux.HandleFunc("GET /v1/api/accounts/{accountID}/charges/{chargeID}", h.GetCharge)
	mux.HandleFunc("PATCH /v1/api/accounts/{accountID}/charges/{chargeID}", h.PatchCharge)
	mux.HandleFunc("GET /v1/api/accounts/{accountID}/charges/{chargeID}/events", h.GetEvents)
	mux.HandleFunc("POST /v1/api/accounts/{accountID}/charges/{chargeID}/capture", h.ApproveCapture)
	mux.HandleFunc("PUT /v1/api/accounts/{accountID}/charges/{chargeID}/can-retry", h.SetCanRetry)
	mux.HandleFunc("POST /v1/api/accounts/{accountID}/telephone-charges", h.CreateTelephoneCharge)

	mux.HandleFunc("PUT /v1/frontend/charges/{chargeID}/status", h.UpdateFrontendStatus)
	mux.HandleFunc("POST /v1/frontend/charges/{chargeID}/authorise", h.Authorise)

	mux.HandleFunc("POST /v1/tasks/expired-charges-sweep", h.RunExpirySweep)
	mux.HandleFunc("POST /v1/tasks/capture-cycle", h.RunCaptureCycle)

	mux.HandleFunc("GET /healthz", h.Health)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) accountID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("accountID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, application.NewInvalidInputError(err)
	}
	return id, nil
}

func (h *Handlers) decode(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return application.NewInvalidInputError(err)
	}
	if err := validate.Struct(into); err != nil {
		return application.NewInvalidInputError(err)
	}
	return nil
}
