// Package x402 implements the server side of the x402 micropayment
// protocol: payment requirement construction, X-PAYMENT header parsing, and
// EIP-712 typed-data handling for EIP-3009 transfer authorizations. The
// service never holds private key material; payloads are signed in the
// caller's wallet and verified by an external facilitator.
package x402

// ProtocolVersion is the x402 protocol version this service speaks.
const ProtocolVersion = 1

// SchemeExact is the only payment scheme supported: an exact-amount
// EIP-3009 transfer authorization.
const SchemeExact = "exact"

// PaymentRequirements describes what a payer must sign to access a
// resource. Constructed server-side, returned in the X-PAYMENT-REQUIRED
// header of 402 responses.
type PaymentRequirements struct {
	Scheme            string            `json:"scheme"`
	Network           string            `json:"network"`
	MaxAmountRequired string            `json:"maxAmountRequired"`
	Resource          string            `json:"resource"`
	Description       string            `json:"description"`
	MimeType          string            `json:"mimeType"`
	PayTo             string            `json:"payTo"`
	MaxTimeoutSeconds int               `json:"maxTimeoutSeconds"`
	Asset             string            `json:"asset"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// PaymentPayload is the signed payment a client presents, usually via the
// X-PAYMENT request header.
type PaymentPayload struct {
	X402Version int           `json:"x402Version"`
	Scheme      string        `json:"scheme"`
	Network     string        `json:"network"`
	Payload     *ExactPayload `json:"payload"`
}

// ExactPayload carries the signature over an EIP-3009 authorization.
type ExactPayload struct {
	Signature     string         `json:"signature"`
	Authorization *Authorization `json:"authorization"`
}

// Authorization is the EIP-3009 transferWithAuthorization message. Value,
// ValidAfter, and ValidBefore are decimal strings; Nonce is 32 bytes hex.
type Authorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// Valid reports whether the payload has the structure needed for
// verification. It does not check the signature.
func (p *PaymentPayload) Valid() bool {
	return p != nil && p.Payload != nil && p.Payload.Authorization != nil &&
		p.Payload.Signature != "" && p.Payload.Authorization.From != ""
}
