package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// PaymentHeader is the request header carrying a signed payment payload.
const PaymentHeader = "X-PAYMENT"

// PaymentRequiredHeader is the response header carrying JSON-encoded
// payment requirements on a 402.
const PaymentRequiredHeader = "X-PAYMENT-REQUIRED"

// HeaderFromRequest returns the x402 payment header value from an HTTP
// request, or "" when absent.
func HeaderFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Header.Get(PaymentHeader))
}

// ParsePaymentHeader decodes a payment header value into a PaymentPayload.
// Clients send either raw JSON or base64-encoded JSON (standard or URL
// alphabets, padded or not); both are accepted.
func ParsePaymentHeader(header string) (*PaymentPayload, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty payment header")
	}

	raw := []byte(header)
	if !strings.HasPrefix(header, "{") {
		decoded, err := base64Decode(header)
		if err != nil {
			return nil, fmt.Errorf("payment header is neither JSON nor base64: %w", err)
		}
		raw = decoded
	}

	var payload PaymentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed payment payload: %w", err)
	}
	if !payload.Valid() {
		return nil, fmt.Errorf("payment payload missing signature or authorization")
	}
	return &payload, nil
}

func base64Decode(s string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.URLEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
