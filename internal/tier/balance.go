package tier

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
)

// BalanceReader reads an address's VOISSS token balance. Implementations
// may fail; the tier resolver degrades to TierNone on error.
type BalanceReader interface {
	TokenBalance(ctx context.Context, address string) (*big.Int, error)
}

// HTTPDoer is the subset of http.Client the reader needs; injectable for
// tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RPCBalanceReader reads ERC-20 balances via JSON-RPC eth_call against a
// list of providers. Each provider gets a small bounded retry budget; when
// one is exhausted the next provider is tried.
type RPCBalanceReader struct {
	endpoints     []string
	tokenContract string
	httpClient    HTTPDoer
	logger        logging.Logger
	retry         retrypolicy.RetryPolicy[*big.Int]
}

// RPCBalanceReaderConfig configures an RPCBalanceReader.
type RPCBalanceReaderConfig struct {
	Endpoints     []string
	TokenContract string
	HTTPClient    HTTPDoer
	Logger        logging.Logger
	Timeout       time.Duration
}

// NewRPCBalanceReader creates a balance reader. At least one endpoint and
// the token contract address are required.
func NewRPCBalanceReader(cfg RPCBalanceReaderConfig) (*RPCBalanceReader, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one RPC endpoint is required")
	}
	if cfg.TokenContract == "" {
		return nil, fmt.Errorf("token contract address is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	retry := retrypolicy.NewBuilder[*big.Int]().
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithJitterFactor(0.1).
		WithMaxRetries(2).
		Build()

	return &RPCBalanceReader{
		endpoints:     cfg.Endpoints,
		tokenContract: cfg.TokenContract,
		httpClient:    cfg.HTTPClient,
		logger:        cfg.Logger,
		retry:         retry,
	}, nil
}

// TokenBalance calls balanceOf(address) on the token contract. Providers
// are tried in order; the first successful response wins.
func (r *RPCBalanceReader) TokenBalance(ctx context.Context, address string) (*big.Int, error) {
	callData, err := balanceOfCallData(address)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, endpoint := range r.endpoints {
		ep := endpoint
		balance, err := failsafe.NewExecutor[*big.Int](r.retry).WithContext(ctx).Get(func() (*big.Int, error) {
			return r.ethCall(ctx, ep, callData)
		})
		if err == nil {
			return balance, nil
		}
		lastErr = err
		if r.logger != nil {
			r.logger.WithFields(logging.Fields{
				"endpoint": ep,
				"error":    err,
			}).Warn("Token balance read failed, trying next provider")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("all RPC providers failed: %w", lastErr)
}

func (r *RPCBalanceReader) ethCall(ctx context.Context, endpoint string, callData []byte) (*big.Int, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "eth_call",
		"params": []interface{}{
			map[string]string{
				"to":   r.tokenContract,
				"data": "0x" + hex.EncodeToString(callData),
			},
			"latest",
		},
		"id": 1,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RPC returned status %d", resp.StatusCode)
	}

	var rpcResp struct {
		Result string           `json:"result"`
		Error  *json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("malformed RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error: %s", string(*rpcResp.Error))
	}

	result := strings.TrimPrefix(rpcResp.Result, "0x")
	if result == "" {
		return big.NewInt(0), nil
	}
	balance, ok := new(big.Int).SetString(result, 16)
	if !ok {
		return nil, fmt.Errorf("invalid balance hex %q", rpcResp.Result)
	}
	return balance, nil
}

// balanceOfCallData builds the ABI-encoded balanceOf(address) calldata.
func balanceOfCallData(address string) ([]byte, error) {
	addr, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(address)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	if len(addr) != 20 {
		return nil, fmt.Errorf("address must be 20 bytes, got %d", len(addr))
	}

	// keccak256("balanceOf(address)")[0:4]
	methodID := []byte{0x70, 0xa0, 0x82, 0x31}
	padded := make([]byte, 32)
	copy(padded[12:], addr)
	return append(methodID, padded...), nil
}
