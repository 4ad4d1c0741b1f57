package x402

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// TypedData is the EIP-712 envelope a payer's wallet signs. Serialized to
// the caller as-is; wallets consume this shape directly via
// eth_signTypedData_v4.
type TypedData struct {
	Types       map[string][]TypedDataField `json:"types"`
	PrimaryType string                      `json:"primaryType"`
	Domain      TypedDataDomain             `json:"domain"`
	Message     map[string]string           `json:"message"`
}

// TypedDataField is one field of an EIP-712 struct type.
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TypedDataDomain is the EIP-712 domain for the network's USDC contract.
type TypedDataDomain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// SigningData builds the typed-data envelope and matching authorization for
// a payer to sign off-server. The nonce is freshly generated; validity runs
// from now until now+validSeconds.
func SigningData(req *PaymentRequirements, network NetworkConfig, from string, validSeconds int64) (*TypedData, *Authorization, error) {
	if validSeconds <= 0 {
		validSeconds = int64(defaultTimeoutSeconds)
	}
	nonce, err := NewNonce()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().Unix()
	auth := &Authorization{
		From:        from,
		To:          req.PayTo,
		Value:       req.MaxAmountRequired,
		ValidAfter:  "0",
		ValidBefore: fmt.Sprintf("%d", now+validSeconds),
		Nonce:       nonce,
	}

	typed := &TypedData{
		Types: map[string][]TypedDataField{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": {
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: TypedDataDomain{
			Name:              network.EIP712Name,
			Version:           network.EIP712Version,
			ChainID:           network.ChainID,
			VerifyingContract: network.USDCContract,
		},
		Message: map[string]string{
			"from":        auth.From,
			"to":          auth.To,
			"value":       auth.Value,
			"validAfter":  auth.ValidAfter,
			"validBefore": auth.ValidBefore,
			"nonce":       auth.Nonce,
		},
	}
	return typed, auth, nil
}

// RecoverSigner recovers the address that signed the payload's EIP-3009
// authorization. Used as a cheap local pre-check before the facilitator
// round trip; the facilitator remains authoritative.
func RecoverSigner(payload *PaymentPayload, network NetworkConfig) (string, error) {
	if !payload.Valid() {
		return "", fmt.Errorf("invalid payload structure")
	}

	digest := signingDigest(payload.Payload.Authorization, network)

	sig, err := hex.DecodeString(strings.TrimPrefix(payload.Payload.Signature, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	// Normalize the recovery id: wallets emit 27/28, secp256k1 wants 0/1.
	recovery := sig[64]
	if recovery >= 27 {
		recovery -= 27
	}
	if recovery > 1 {
		return "", fmt.Errorf("invalid recovery id: %d", sig[64])
	}
	normalized := make([]byte, 65)
	copy(normalized, sig[:64])
	normalized[64] = recovery

	pubKey, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return "", fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// VerifyLocalSignature checks that the payload's signature was produced by
// its claimed From address.
func VerifyLocalSignature(payload *PaymentPayload, network NetworkConfig) error {
	signer, err := RecoverSigner(payload, network)
	if err != nil {
		return err
	}
	if !strings.EqualFold(signer, payload.Payload.Authorization.From) {
		return fmt.Errorf("signer %s does not match from address %s", signer, payload.Payload.Authorization.From)
	}
	return nil
}

// signingDigest computes keccak256("\x19\x01" || domainSeparator ||
// structHash) for a transfer authorization.
func signingDigest(auth *Authorization, network NetworkConfig) []byte {
	return keccak256(
		[]byte{0x19, 0x01},
		domainSeparator(network),
		transferWithAuthorizationHash(auth),
	)
}

func domainSeparator(network NetworkConfig) []byte {
	typeHash := keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

	chainID := make([]byte, 32)
	big.NewInt(network.ChainID).FillBytes(chainID)

	return keccak256(
		typeHash,
		keccak256([]byte(network.EIP712Name)),
		keccak256([]byte(network.EIP712Version)),
		chainID,
		padAddress(network.USDCContract),
	)
}

func transferWithAuthorizationHash(auth *Authorization) []byte {
	typeHash := keccak256([]byte("TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"))

	return keccak256(
		typeHash,
		padAddress(auth.From),
		padAddress(auth.To),
		padUint256(auth.Value),
		padUint256(auth.ValidAfter),
		padUint256(auth.ValidBefore),
		padBytes32(auth.Nonce),
	)
}

func keccak256(data ...[]byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hasher.Write(d)
	}
	return hasher.Sum(nil)
}

func padAddress(addr string) []byte {
	raw, _ := hex.DecodeString(strings.TrimPrefix(strings.ToLower(addr), "0x"))
	padded := make([]byte, 32)
	copy(padded[12:], raw)
	return padded
}

func padUint256(value string) []byte {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		v = big.NewInt(0)
	}
	padded := make([]byte, 32)
	v.FillBytes(padded)
	return padded
}

func padBytes32(value string) []byte {
	raw, _ := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	padded := make([]byte, 32)
	copy(padded, raw)
	return padded
}
