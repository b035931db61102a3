// Package gateway talks to the external payment provider: hosted checkout
// sessions, refunds, and the signed webhook payload it sends back.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"space-booking-backend/config"
)

// ChargeRequest asks the gateway for a hosted checkout session.
type ChargeRequest struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
	CustomerID  string `json:"customer_id"`
	Description string `json:"description"`
}

// ChargeSession is the gateway's checkout session: a redirect URL plus a
// session token the client resumes with.
type ChargeSession struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// RefundRequest asks the gateway to return a settled charge.
type RefundRequest struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Reason  string `json:"reason"`
}

// RefundResult is the gateway's answer to a refund request.
type RefundResult struct {
	RefundKey string `json:"refund_key"`
	Status    string `json:"status"`
}

// Client is the payment provider contract the orchestration layers depend on.
type Client interface {
	CreateChargeSession(ctx context.Context, req ChargeRequest) (*ChargeSession, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	RefundStatus(ctx context.Context, refundKey string) (string, error)
}

// HTTPClient implements Client against the gateway's REST API with a bounded
// timeout so a slow provider never holds a transaction open.
type HTTPClient struct {
	cfg    *config.GatewayConfig
	client *http.Client
}

// NewHTTPClient creates a gateway client from configuration.
func NewHTTPClient(cfg *config.GatewayConfig) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// CreateChargeSession requests a hosted checkout session.
func (c *HTTPClient) CreateChargeSession(ctx context.Context, req ChargeRequest) (*ChargeSession, error) {
	var session ChargeSession
	if err := c.post(ctx, "/v1/charges", req, &session); err != nil {
		return nil, err
	}
	if session.Token == "" || session.RedirectURL == "" {
		return nil, fmt.Errorf("gateway returned an incomplete charge session for order %s", req.OrderID)
	}
	return &session, nil
}

// Refund requests a refund for a settled charge.
func (c *HTTPClient) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	var result RefundResult
	if err := c.post(ctx, "/v1/refunds", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefundStatus polls the gateway for the current state of a refund.
func (c *HTTPClient) RefundStatus(ctx context.Context, refundKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/refunds/"+refundKey, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create refund status request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ServerKey, "")

	var result RefundResult
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.ServerKey, "")

	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal gateway response: %w", err)
	}
	return nil
}
