package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig controls HTTP retry behavior for outbound calls.
type RetryConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	RetryFunc      func(resp *http.Response, err error) bool
	CircuitBreaker *CircuitBreaker
}

// DefaultRetryConfig returns the retry policy used for facilitator and RPC
// calls: three retries with exponential backoff and jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		RetryFunc:  DefaultShouldRetry,
	}
}

// DefaultShouldRetry retries transport errors, server errors, and rate
// limits. Client errors are terminal.
func DefaultShouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return false
}

// DoWithRetry executes an HTTP request under the retry policy, routed
// through the circuit breaker when one is configured.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, config RetryConfig) (*http.Response, error) {
	if config.CircuitBreaker == nil {
		return retryAttempts(ctx, client, req, config)
	}

	var resp *http.Response
	var err error
	cbErr := config.CircuitBreaker.Call(func() error {
		resp, err = retryAttempts(ctx, client, req, config)
		if err != nil {
			return err
		}
		// 5xx counts against the breaker even though the call "worked".
		if resp != nil && resp.StatusCode >= 500 {
			return fmt.Errorf("server error: %d", resp.StatusCode)
		}
		return nil
	})
	if cbErr != nil && err == nil {
		return nil, cbErr
	}
	return resp, err
}

// retryAttempts runs up to MaxRetries+1 attempts with exponential backoff.
// The request body is snapshotted once so every attempt sends the same
// bytes.
func retryAttempts(ctx context.Context, client *http.Client, req *http.Request, config RetryConfig) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt-1)))
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
			if config.Jitter {
				// +/-10% to spread synchronized retries apart.
				delay += time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
			}

			select {
			case <-ctx.Done():
				return lastResp, ctx.Err()
			case <-time.After(delay):
			}
		}

		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}
		attemptReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
		if err != nil {
			return nil, err
		}
		attemptReq.Header = req.Header.Clone()
		attemptReq.ContentLength = int64(len(bodyBytes))

		resp, err := client.Do(attemptReq)
		lastResp = resp
		lastErr = err

		if !config.RetryFunc(resp, err) {
			return resp, err
		}
		if attempt == config.MaxRetries {
			break
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
	}
	return lastResp, lastErr
}
