// Package facilitator is the HTTP client for the external x402 facilitator
// service, which verifies signed payment payloads and settles them
// on-chain. The open facilitator protocol is pinned: POST /verify and POST
// /settle with {x402Version, paymentPayload, paymentRequirements} bodies.
package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/clients"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/x402"
)

// Client calls a facilitator over HTTP with retry and an optional circuit
// breaker.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      logging.Logger
	retryConfig clients.RetryConfig
}

// Config configures a facilitator client.
type Config struct {
	BaseURL              string
	Timeout              time.Duration
	Logger               logging.Logger
	RetryConfig          *clients.RetryConfig
	CircuitBreakerConfig *clients.CircuitBreakerConfig
}

// VerifyRequest is the body of POST /verify.
type VerifyRequest struct {
	X402Version         int                       `json:"x402Version"`
	PaymentPayload      *x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *x402.PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse is the facilitator's verdict on a payload.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleRequest is the body of POST /settle.
type SettleRequest struct {
	X402Version         int                       `json:"x402Version"`
	PaymentPayload      *x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *x402.PaymentRequirements `json:"paymentRequirements"`
}

// SettleResponse reports the on-chain settlement outcome.
type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
}

// NewClient creates a facilitator client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	retryConfig := clients.DefaultRetryConfig()
	if config.RetryConfig != nil {
		retryConfig = *config.RetryConfig
	}
	if config.CircuitBreakerConfig != nil {
		retryConfig.CircuitBreaker = clients.NewCircuitBreaker(*config.CircuitBreakerConfig)
	}

	return &Client{
		baseURL:     config.BaseURL,
		httpClient:  &http.Client{Timeout: config.Timeout},
		logger:      config.Logger,
		retryConfig: retryConfig,
	}
}

// BaseURL returns the facilitator endpoint this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Verify asks the facilitator to validate a signed payload against the
// requirements without settling. Transport failures return an error;
// protocol rejections come back in the response.
func (c *Client) Verify(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*VerifyResponse, error) {
	var out VerifyResponse
	err := c.post(ctx, "/verify", VerifyRequest{
		X402Version:         x402.ProtocolVersion,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Settle asks the facilitator to execute a verified payment on-chain.
func (c *Client) Settle(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*SettleResponse, error) {
	var out SettleResponse
	err := c.post(ctx, "/settle", SettleRequest{
		X402Version:         x402.ProtocolVersion,
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Healthy reports whether the facilitator endpoint is reachable.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/supported", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("facilitator unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("facilitator returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := clients.DoWithRetry(ctx, c.httpClient, req, c.retryConfig)
	if err != nil {
		return fmt.Errorf("failed to call facilitator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("facilitator error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode facilitator response: %w", err)
	}
	return nil
}
