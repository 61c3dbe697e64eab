package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/application/services"
	"github.com/gwpay/connector/internal/domain"
	"github.com/gwpay/connector/internal/infrastructure/events"
	"github.com/gwpay/connector/internal/infrastructure/persistence/memory"
	"github.com/gwpay/connector/internal/infrastructure/provider"
	"github.com/gwpay/connector/internal/interfaces/rest/handlers"
	"github.com/gwpay/connector/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accountID int64 = 42

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	store.SeedCredential(accountID, "sandbox", domain.CredentialActive)

	registry := provider.NewRegistry()
	registry.Register("sandbox", provider.NewSandboxClient())

	publisher := events.NopPublisher{}
	clock := application.SystemClock{}
	logger := slog.New(slog.DiscardHandler)

	admission := services.NewAdmissionService(store, publisher, clock)
	authorise := services.NewAuthoriseService(store, store, registry, publisher, clock)
	capture := services.NewCaptureService(store, publisher, clock)
	query := services.NewQueryService(store)

	captureWorker := worker.NewCaptureWorker(store, store, registry, publisher, clock, time.Minute, 10, 3, logger)
	expiryWorker := worker.NewExpiryWorker(store, publisher, clock, time.Minute, time.Hour, 10, logger)

	h := handlers.NewHandlers(admission, authorise, capture, query, captureWorker, expiryWorker, logger)

	mux := http.NewServeMux()
	h.Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.ContentLength != 0 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func createChargeViaAPI(t *testing.T, baseURL string, body map[string]any) string {
	t.Helper()

	if body == nil {
		body = map[string]any{}
	}
	if _, ok := body["amount"]; !ok {
		body["amount"] = 6234
	}
	if _, ok := body["reference"]; !ok {
		body["reference"] = "ref-api"
	}
	if _, ok := body["return_url"]; !ok {
		body["return_url"] = "https://merchant.example/return"
	}

	resp, decoded := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/v1/api/accounts/%d/charges", baseURL, accountID), body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decoded["charge_id"].(string)
}

func authoriseBody(cardNumber string) map[string]any {
	return map[string]any{
		"card_number":     cardNumber,
		"cvc":             "123",
		"cardholder_name": "J. Doe",
		"expiry_month":    12,
		"expiry_year":     2030,
		"address_line1":   "12 High Street",
		"city":            "London",
		"postcode":        "EC1A 1BB",
		"country":         "GB",
	}
}

func TestChargeLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("created charge projects as created", func(t *testing.T) {
		chargeID := createChargeViaAPI(t, server.URL, nil)

		resp, decoded := doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/v1/api/accounts/%d/charges/%s", server.URL, accountID, chargeID), nil)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		state := decoded["state"].(map[string]any)
		assert.Equal(t, "created", state["status"])
		assert.Equal(t, false, state["finished"])
	})

	t.Run("rejected authorisation surfaces failed with P0010", func(t *testing.T) {
		chargeID := createChargeViaAPI(t, server.URL, nil)

		resp, _ := doJSON(t, http.MethodPut,
			fmt.Sprintf("%s/v1/frontend/charges/%s/status", server.URL, chargeID),
			map[string]any{"new_status": "ENTERING_CARD_DETAILS"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, decoded := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/v1/frontend/charges/%s/authorise", server.URL, chargeID),
			authoriseBody("4000000000000002"))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		state := decoded["state"].(map[string]any)
		assert.Equal(t, "failed", state["status"])
		assert.Equal(t, true, state["finished"])
		assert.Equal(t, "P0010", state["code"])

		// A terminal charge cannot be authorised again.
		resp, body := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/v1/frontend/charges/%s/authorise", server.URL, chargeID),
			authoriseBody("4444333322221111"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		errDetail := body["error"].(map[string]any)
		assert.Equal(t, "ILLEGAL_STATE", errDetail["code"])
	})

	t.Run("successful authorisation masks the stored card", func(t *testing.T) {
		chargeID := createChargeViaAPI(t, server.URL, nil)

		doJSON(t, http.MethodPut,
			fmt.Sprintf("%s/v1/frontend/charges/%s/status", server.URL, chargeID),
			map[string]any{"new_status": "ENTERING_CARD_DETAILS"})

		resp, decoded := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/v1/frontend/charges/%s/authorise", server.URL, chargeID),
			authoriseBody("4444333322221111"))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		card := decoded["card_details"].(map[string]any)
		assert.Equal(t, "444433", card["first_digits_card_number"])
		assert.Equal(t, "1111", card["last_digits_card_number"])
	})

	t.Run("delayed capture approval returns 204 and capture cycle settles it", func(t *testing.T) {
		chargeID := createChargeViaAPI(t, server.URL, map[string]any{"delayed_capture": true})

		doJSON(t, http.MethodPut,
			fmt.Sprintf("%s/v1/frontend/charges/%s/status", server.URL, chargeID),
			map[string]any{"new_status": "ENTERING_CARD_DETAILS"})
		resp, _ := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/v1/frontend/charges/%s/authorise", server.URL, chargeID),
			authoriseBody("4444333322221111"))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/v1/api/accounts/%d/charges/%s/capture", server.URL, accountID, chargeID), nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, result := doJSON(t, http.MethodPost, server.URL+"/v1/tasks/capture-cycle", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), result["success"])

		_, decoded := doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/v1/api/accounts/%d/charges/%s", server.URL, accountID, chargeID), nil)
		state := decoded["state"].(map[string]any)
		assert.Equal(t, "success", state["status"])
	})

	t.Run("capture approval conflicts before authorisation", func(t *testing.T) {
		chargeID := createChargeViaAPI(t, server.URL, map[string]any{"delayed_capture": true})

		resp, body := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/v1/api/accounts/%d/charges/%s/capture", server.URL, accountID, chargeID), nil)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		errDetail := body["error"].(map[string]any)
		assert.Equal(t, "CAPTURE_NOT_AWAITING", errDetail["code"])
	})

	t.Run("email patch replaces the email", func(t *testing.T) {
		chargeID := createChargeViaAPI(t, server.URL, map[string]any{"email": "old@example.com"})

		resp, decoded := doJSON(t, http.MethodPatch,
			fmt.Sprintf("%s/v1/api/accounts/%d/charges/%s", server.URL, accountID, chargeID),
			map[string]any{"op": "replace", "path": "email", "value": "new@example.com"})

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "new@example.com", decoded["email"])
	})

	t.Run("a charge under another account is not found", func(t *testing.T) {
		chargeID := createChargeViaAPI(t, server.URL, nil)

		resp, _ := doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/v1/api/accounts/%d/charges/%s", server.URL, accountID+1, chargeID), nil)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTelephoneChargesOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	body := map[string]any{
		"amount":       2500,
		"reference":    "phone-ref",
		"processor_id": "proc-1",
		"provider_id":  "prov-1",
		"payment_outcome": map[string]any{
			"status": "success",
		},
	}

	url := fmt.Sprintf("%s/v1/api/accounts/%d/telephone-charges", server.URL, accountID)

	resp, first := doJSON(t, http.MethodPost, url, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	state := first["state"].(map[string]any)
	assert.Equal(t, "success", state["status"])

	resp, second := doJSON(t, http.MethodPost, url, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first["charge_id"], second["charge_id"])
}

func TestExpirySweepOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	// Nothing is older than the threshold, so the sweep reports zeros.
	resp, result := doJSON(t, http.MethodPost, server.URL+"/v1/tasks/expired-charges-sweep", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), result["success"])
	assert.Equal(t, float64(0), result["failed"])
}

func TestValidationOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("missing amount is a 400", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/v1/api/accounts/%d/charges", server.URL, accountID),
			map[string]any{"reference": "ref", "return_url": "https://merchant.example/return"})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("a non-numeric account id is a 400", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost,
			server.URL+"/v1/api/accounts/abc/charges",
			map[string]any{"amount": 100, "reference": "ref", "return_url": "https://merchant.example/return"})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
