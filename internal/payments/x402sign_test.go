package payments

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/x402"
)

// signedPayload plays the client's wallet: it generates a key, builds an
// EIP-3009 authorization for the challenge, and signs its EIP-712 digest.
// The digest is computed independently of the production code so the two
// sides must agree on the hashing.
func signedPayload(t *testing.T, network x402.NetworkConfig, req *x402.PaymentRequirements) *x402.PaymentPayload {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey).Hex()

	nonce, err := x402.NewNonce()
	if err != nil {
		t.Fatalf("nonce generation failed: %v", err)
	}
	auth := &x402.Authorization{
		From:        from,
		To:          req.PayTo,
		Value:       req.MaxAmountRequired,
		ValidAfter:  "0",
		ValidBefore: fmt.Sprintf("%d", time.Now().Unix()+600),
		Nonce:       nonce,
	}

	sig, err := crypto.Sign(transferDigest(auth, network), key)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}
	// Wallet-style recovery id.
	sig[64] += 27

	return &x402.PaymentPayload{
		X402Version: x402.ProtocolVersion,
		Scheme:      x402.SchemeExact,
		Network:     network.Name,
		Payload: &x402.ExactPayload{
			Signature:     "0x" + hex.EncodeToString(sig),
			Authorization: auth,
		},
	}
}

func transferDigest(auth *x402.Authorization, network x402.NetworkConfig) []byte {
	domainTypeHash := crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	chainID := make([]byte, 32)
	big.NewInt(network.ChainID).FillBytes(chainID)
	domain := crypto.Keccak256(
		domainTypeHash,
		crypto.Keccak256([]byte(network.EIP712Name)),
		crypto.Keccak256([]byte(network.EIP712Version)),
		chainID,
		leftPadAddr(network.USDCContract),
	)

	transferTypeHash := crypto.Keccak256([]byte("TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"))
	structHash := crypto.Keccak256(
		transferTypeHash,
		leftPadAddr(auth.From),
		leftPadAddr(auth.To),
		leftPadUint(auth.Value),
		leftPadUint(auth.ValidAfter),
		leftPadUint(auth.ValidBefore),
		nonceBytes(auth.Nonce),
	)

	return crypto.Keccak256([]byte{0x19, 0x01}, domain, structHash)
}

func leftPadAddr(addr string) []byte {
	raw, _ := hex.DecodeString(strings.TrimPrefix(strings.ToLower(addr), "0x"))
	out := make([]byte, 32)
	copy(out[12:], raw)
	return out
}

func leftPadUint(value string) []byte {
	v, _ := new(big.Int).SetString(value, 10)
	if v == nil {
		v = big.NewInt(0)
	}
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}

func nonceBytes(nonce string) []byte {
	raw, _ := hex.DecodeString(strings.TrimPrefix(nonce, "0x"))
	out := make([]byte, 32)
	copy(out, raw)
	return out
}
