package x402

import (
	"encoding/hex"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

func signedTestPayload(t *testing.T, network NetworkConfig, mangleFrom bool) *PaymentPayload {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	signer := crypto.PubkeyToAddress(key.PublicKey).Hex()

	auth := &Authorization{
		From:        signer,
		To:          "0x1111111111111111111111111111111111111111",
		Value:       "1500000",
		ValidAfter:  "0",
		ValidBefore: "9999999999",
		Nonce:       "0x" + strings.Repeat("cd", 32),
	}
	if mangleFrom {
		auth.From = "0x2222222222222222222222222222222222222222"
	}

	sig, err := crypto.Sign(signingDigest(auth, network), key)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	return &PaymentPayload{
		X402Version: ProtocolVersion,
		Scheme:      SchemeExact,
		Network:     network.Name,
		Payload: &ExactPayload{
			Signature:     "0x" + hex.EncodeToString(sig),
			Authorization: auth,
		},
	}
}

func TestRecoverSignerRoundTrip(t *testing.T) {
	network := testNetwork(t)
	payload := signedTestPayload(t, network, false)

	signer, err := RecoverSigner(payload, network)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if !strings.EqualFold(signer, payload.Payload.Authorization.From) {
		t.Errorf("recovered %s, want %s", signer, payload.Payload.Authorization.From)
	}

	if err := VerifyLocalSignature(payload, network); err != nil {
		t.Errorf("verification should pass: %v", err)
	}
}

func TestRecoverSignerWalletStyleV(t *testing.T) {
	network := testNetwork(t)
	payload := signedTestPayload(t, network, false)

	// Wallets emit the recovery id as 27/28 rather than 0/1.
	sig, _ := hex.DecodeString(strings.TrimPrefix(payload.Payload.Signature, "0x"))
	sig[64] += 27
	payload.Payload.Signature = "0x" + hex.EncodeToString(sig)

	if err := VerifyLocalSignature(payload, network); err != nil {
		t.Errorf("27/28 recovery id should verify: %v", err)
	}
}

func TestVerifyLocalSignatureRejectsWrongFrom(t *testing.T) {
	network := testNetwork(t)
	payload := signedTestPayload(t, network, true)

	if err := VerifyLocalSignature(payload, network); err == nil {
		t.Error("signature from a different key must not verify")
	}
}

func TestVerifyLocalSignatureRejectsTamperedValue(t *testing.T) {
	network := testNetwork(t)
	payload := signedTestPayload(t, network, false)
	payload.Payload.Authorization.Value = "9500000"

	if err := VerifyLocalSignature(payload, network); err == nil {
		t.Error("tampered value must break the signature")
	}
}

func TestSigningData(t *testing.T) {
	network := testNetwork(t)
	builder, err := NewBuilder(network, validPayTo, nil)
	if err != nil {
		t.Fatalf("builder setup failed: %v", err)
	}
	req, _, err := builder.CreateRequirements("https://api.example.com/voice", "$1.50", validPayTo, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	typed, auth, err := SigningData(req, network, validPayToChecksum, 600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if typed.PrimaryType != "TransferWithAuthorization" {
		t.Errorf("primary type %s", typed.PrimaryType)
	}
	if typed.Domain.ChainID != network.ChainID || typed.Domain.VerifyingContract != network.USDCContract {
		t.Errorf("domain mismatch: %+v", typed.Domain)
	}
	if auth.Value != "1500000" || auth.To != req.PayTo {
		t.Errorf("authorization mismatch: %+v", auth)
	}

	before, err := strconv.ParseInt(auth.ValidBefore, 10, 64)
	if err != nil {
		t.Fatalf("validBefore not numeric: %v", err)
	}
	remaining := before - time.Now().Unix()
	if remaining < 590 || remaining > 610 {
		t.Errorf("validity window off: %d seconds", remaining)
	}
}
