package auth

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// signMessage produces an EIP-191 personal_sign signature in r|s|v layout.
func signMessage(t *testing.T, key *btcec.PrivateKey, message string) string {
	t.Helper()
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := keccak256([]byte(prefixed))

	compact := ecdsa.SignCompact(key, hash, false)
	sig := make([]byte, 65)
	copy(sig[0:32], compact[1:33])
	copy(sig[32:64], compact[33:65])
	sig[64] = compact[0] // 27 or 28
	return "0x" + hex.EncodeToString(sig)
}

func TestVerifyEthSignature(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	address := pubKeyToEthAddress(key.PubKey())
	message := "hello voisss"

	t.Run("valid signature", func(t *testing.T) {
		valid, err := VerifyEthSignature(address, message, signMessage(t, key, message))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !valid {
			t.Error("signature should verify")
		}
	})

	t.Run("wrong address", func(t *testing.T) {
		valid, err := VerifyEthSignature("0x2222222222222222222222222222222222222222", message, signMessage(t, key, message))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if valid {
			t.Error("signature must not verify for another address")
		}
	})

	t.Run("tampered message", func(t *testing.T) {
		valid, err := VerifyEthSignature(address, "different message", signMessage(t, key, message))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if valid {
			t.Error("tampered message must not verify")
		}
	})

	t.Run("malformed signature", func(t *testing.T) {
		if _, err := VerifyEthSignature(address, message, "0x1234"); err == nil {
			t.Error("short signature should error")
		}
	})
}

func TestVerifyWalletAuth(t *testing.T) {
	key, _ := btcec.NewPrivateKey()
	address := pubKeyToEthAddress(key.PubKey())

	t.Run("fresh message", func(t *testing.T) {
		message := GenerateWalletAuthMessage("nonce-1")
		valid, err := VerifyWalletAuth(WalletMessage{
			Address:   address,
			Message:   message,
			Signature: signMessage(t, key, message),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !valid {
			t.Error("fresh signed message should verify")
		}
	})

	t.Run("expired message", func(t *testing.T) {
		stale := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339)
		message := fmt.Sprintf("VOISSS Payment Authorization\nTimestamp: %s\nNonce: nonce-2", stale)
		_, err := VerifyWalletAuth(WalletMessage{
			Address:   address,
			Message:   message,
			Signature: signMessage(t, key, message),
		})
		if err == nil {
			t.Error("expired message must be rejected")
		}
	})

	t.Run("missing timestamp", func(t *testing.T) {
		message := "VOISSS Payment Authorization\nNonce: nonce-3"
		_, err := VerifyWalletAuth(WalletMessage{
			Address:   address,
			Message:   message,
			Signature: signMessage(t, key, message),
		})
		if err == nil {
			t.Error("message without timestamp must be rejected")
		}
	})
}

func TestNormalizeEthAddress(t *testing.T) {
	t.Run("applies EIP-55 checksum", func(t *testing.T) {
		got, err := NormalizeEthAddress("0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045" {
			t.Errorf("unexpected checksum address: %s", got)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, in := range []string{"", "0x123", "not-an-address", "0xZZda6bf26964af9d7eed9e03e53415d37aa96045"} {
			if _, err := NormalizeEthAddress(in); err == nil {
				t.Errorf("NormalizeEthAddress(%q) should fail", in)
			}
		}
	})
}
