package x402

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
)

// defaultTimeoutSeconds bounds how long a signed authorization stays
// acceptable.
const defaultTimeoutSeconds = 300

var decimalAmountPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// Builder constructs payment requirements for one network with a configured
// default recipient.
type Builder struct {
	network      NetworkConfig
	defaultPayTo string
	logger       logging.Logger
}

// NewBuilder creates a requirements builder. defaultPayTo is the safety-net
// recipient used when a caller supplies an empty or malformed payTo; it must
// itself be a valid address.
func NewBuilder(network NetworkConfig, defaultPayTo string, logger logging.Logger) (*Builder, error) {
	normalized, ok := normalizeAddress(defaultPayTo)
	if !ok {
		return nil, fmt.Errorf("invalid default payTo address %q", defaultPayTo)
	}
	return &Builder{
		network:      network,
		defaultPayTo: normalized,
		logger:       logger,
	}, nil
}

// Network returns the builder's network config.
func (b *Builder) Network() NetworkConfig {
	return b.network
}

// CreateRequirements builds the payment requirements for a resource.
// amount accepts a bare integer string (already smallest units), a decimal
// string, or a currency-formatted string like "$1.50". The returned bool is
// true when the supplied payTo was unusable and the configured default was
// substituted — callers that need to detect the fallback check it.
func (b *Builder) CreateRequirements(resource, amount, payTo, description string) (*PaymentRequirements, bool, error) {
	units, err := NormalizeAmount(amount)
	if err != nil {
		return nil, false, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	recipient, usedDefault := b.resolvePayTo(payTo)

	return &PaymentRequirements{
		Scheme:            SchemeExact,
		Network:           b.network.Name,
		MaxAmountRequired: units,
		Resource:          resource,
		Description:       description,
		MimeType:          "application/json",
		PayTo:             recipient,
		MaxTimeoutSeconds: defaultTimeoutSeconds,
		Asset:             b.network.USDCContract,
		Extra: map[string]string{
			"name":    b.network.EIP712Name,
			"version": b.network.EIP712Version,
		},
	}, usedDefault, nil
}

func (b *Builder) resolvePayTo(payTo string) (string, bool) {
	normalized, ok := normalizeAddress(payTo)
	if ok {
		return normalized, false
	}
	if b.logger != nil {
		b.logger.WithFields(logging.Fields{
			"pay_to":  payTo,
			"default": b.defaultPayTo,
		}).Error("Invalid payTo address, falling back to configured default recipient")
	}
	return b.defaultPayTo, true
}

// NormalizeAmount converts an amount string into a smallest-unit decimal
// string. A bare integer string is treated as already being in smallest
// units; anything with a decimal point or currency decoration is parsed as a
// human amount at 6 decimals. String arithmetic only — large values never
// pass through a float.
func NormalizeAmount(amount string) (string, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return "", fmt.Errorf("empty amount")
	}

	if isDigits(amount) {
		trimmed := strings.TrimLeft(amount, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		return trimmed, nil
	}

	numeric := decimalAmountPattern.FindString(amount)
	if numeric == "" {
		return "", fmt.Errorf("no numeric value")
	}

	whole := numeric
	fraction := ""
	if idx := strings.Index(numeric, "."); idx >= 0 {
		whole = numeric[:idx]
		fraction = numeric[idx+1:]
	}
	if len(fraction) > 6 {
		fraction = fraction[:6]
	}
	for len(fraction) < 6 {
		fraction += "0"
	}

	combined := strings.TrimLeft(whole+fraction, "0")
	if combined == "" {
		combined = "0"
	}
	return combined, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// normalizeAddress trims and EIP-55 checksums an address. Returns false for
// empty or malformed input.
func normalizeAddress(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", false
	}
	return common.HexToAddress(address).Hex(), true
}

// NewNonce returns a fresh 32-byte nonce as 0x-prefixed hex. Each payment
// attempt gets its own; the facilitator enforces single use.
func NewNonce() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("nonce generation failed: %w", err)
	}
	return "0x" + hex.EncodeToString(buf[:]), nil
}
