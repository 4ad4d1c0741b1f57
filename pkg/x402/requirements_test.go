package x402

import (
	"strings"
	"testing"
)

const validPayTo = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"
const validPayToChecksum = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

func testNetwork(t *testing.T) NetworkConfig {
	t.Helper()
	network, err := Network("base", false)
	if err != nil {
		t.Fatalf("base network missing: %v", err)
	}
	return network
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"124", "124"},        // bare integer is already smallest units
		{"0", "0"},
		{"007", "7"},
		{"$1.50", "1500000"},  // currency string parsed at 6 decimals
		{"1.5", "1500000"},
		{"0.000001", "1"},
		{"$0.01", "10000"},
		{"2.50 USDC", "2500000"},
		{"10.1234567", "10123456"}, // truncated, never rounded up
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeAmount(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeAmount(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	for _, in := range []string{"", "   ", "free"} {
		if _, err := NormalizeAmount(in); err == nil {
			t.Errorf("NormalizeAmount(%q) should fail", in)
		}
	}
}

func TestCreateRequirements(t *testing.T) {
	builder, err := NewBuilder(testNetwork(t), validPayTo, nil)
	if err != nil {
		t.Fatalf("builder setup failed: %v", err)
	}

	req, usedDefault, err := builder.CreateRequirements("https://api.example.com/dub", "$1.50", validPayTo, "dubbing x30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usedDefault {
		t.Error("valid payTo should not trip the fallback")
	}
	if req.MaxAmountRequired != "1500000" {
		t.Errorf("amount = %q, want 1500000", req.MaxAmountRequired)
	}
	if req.Scheme != SchemeExact || req.Network != "base" {
		t.Errorf("unexpected scheme/network %s/%s", req.Scheme, req.Network)
	}
	if req.PayTo != validPayToChecksum {
		t.Errorf("payTo not checksummed: %s", req.PayTo)
	}
	if req.Asset == "" || req.Extra["name"] == "" || req.Extra["version"] == "" {
		t.Errorf("missing asset or EIP-712 domain extra: %+v", req)
	}
	if req.MaxTimeoutSeconds <= 0 {
		t.Error("timeout must be positive")
	}
}

func TestCreateRequirementsPayToFallback(t *testing.T) {
	builder, err := NewBuilder(testNetwork(t), validPayTo, nil)
	if err != nil {
		t.Fatalf("builder setup failed: %v", err)
	}

	for _, payTo := range []string{"", "   ", "not-an-address", "0x123"} {
		req, usedDefault, err := builder.CreateRequirements("https://api.example.com/x", "124", payTo, "")
		if err != nil {
			t.Fatalf("unexpected error for payTo %q: %v", payTo, err)
		}
		if !usedDefault {
			t.Errorf("payTo %q should fall back to the default", payTo)
		}
		if req.PayTo != validPayToChecksum {
			t.Errorf("fallback recipient = %s", req.PayTo)
		}
	}

	// Whitespace around a valid address is trimmed, not treated as invalid.
	req, usedDefault, err := builder.CreateRequirements("https://api.example.com/x", "124", "  "+validPayTo+"  ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usedDefault {
		t.Error("padded valid payTo should be accepted")
	}
	if req.PayTo != validPayToChecksum {
		t.Errorf("payTo = %s", req.PayTo)
	}
}

func TestNewBuilderRejectsBadDefault(t *testing.T) {
	if _, err := NewBuilder(testNetwork(t), "junk", nil); err == nil {
		t.Error("invalid default payTo must be rejected at construction")
	}
}

func TestNewNonce(t *testing.T) {
	a, err := NewNonce()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := NewNonce()
	if !strings.HasPrefix(a, "0x") || len(a) != 66 {
		t.Errorf("nonce format wrong: %s", a)
	}
	if a == b {
		t.Error("nonces must be unique")
	}
}
