// Package provider holds the payment gateway client implementations. One
// implementation exists per provider; everything above this package talks
// to the application.ProviderClient port.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gwpay/connector/internal/application"
	"github.com/gwpay/connector/internal/config"
)

// HTTPProviderClient talks to one gateway's REST API.
type HTTPProviderClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProviderClient(cfg config.ProviderEndpoint) application.ProviderClient {
	return &HTTPProviderClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

type authoriseRequest struct {
	CredentialID   string `json:"credential_id"`
	CardNumber     string `json:"card_number"`
	CVC            string `json:"cvc"`
	CardholderName string `json:"cardholder_name"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	Amount         int64  `json:"amount"`
	Reference      string `json:"reference"`
}

type authoriseResponse struct {
	Outcome       string `json:"outcome"`
	TransactionID string `json:"transaction_id"`
	IssuerURL     string `json:"issuer_url,omitempty"`
}

type captureRequest struct {
	CredentialID  string `json:"credential_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
}

type captureResponse struct {
	Outcome string `json:"outcome"`
}

func (c *HTTPProviderClient) Authorise(ctx context.Context, req application.ProviderAuthoriseRequest) (*application.ProviderAuthoriseResponse, error) {
	url := fmt.Sprintf("%s/v1/authorisations", c.baseURL)
	body := authoriseRequest{
		CredentialID:   strconv.FormatInt(req.Credential.ID, 10),
		CardNumber:     req.Card.CardNumber,
		CVC:            req.Card.CVC,
		CardholderName: req.Card.CardholderName,
		ExpiryMonth:    req.Card.ExpiryMonth,
		ExpiryYear:     req.Card.ExpiryYear,
		Amount:         req.Amount,
		Reference:      req.Reference,
	}

	resp, err := sendRequest[authoriseRequest, authoriseResponse](c, ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	return &application.ProviderAuthoriseResponse{
		Outcome:               application.AuthorisationOutcome(resp.Outcome),
		ProviderTransactionID: resp.TransactionID,
		ThreeDSIssuerURL:      resp.IssuerURL,
	}, nil
}

func (c *HTTPProviderClient) Capture(ctx context.Context, req application.ProviderCaptureRequest) (*application.ProviderCaptureResponse, error) {
	url := fmt.Sprintf("%s/v1/captures", c.baseURL)
	body := captureRequest{
		CredentialID:  strconv.FormatInt(req.Credential.ID, 10),
		TransactionID: req.ProviderTransactionID,
		Amount:        req.Amount,
	}

	resp, err := sendRequest[captureRequest, captureResponse](c, ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	return &application.ProviderCaptureResponse{
		Outcome: application.AuthorisationOutcome(resp.Outcome),
	}, nil
}

type providerErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func sendRequest[Req any, Resp any](c *HTTPProviderClient, ctx context.Context, method, url string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp providerErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, &application.ProviderError{
				Code:       "unparseable_response",
				Message:    string(body),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &application.ProviderError{
			Code:       errResp.Err,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var providerResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&providerResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &providerResp, nil
}
