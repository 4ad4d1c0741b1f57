package x402

import (
	"fmt"
	"os"
)

// NetworkConfig holds the per-chain constants x402 settlement needs: the
// USDC asset address and its EIP-712 domain parameters. EIP-3009 domain
// names differ between mainnet ("USD Coin") and some testnets ("USDC").
type NetworkConfig struct {
	Name            string
	DisplayName     string
	ChainID         int64
	USDCContract    string
	EIP712Name      string
	EIP712Version   string
	RPCEndpointEnv  string
	DefaultRPC      string
	FacilitatorURL  string
	IsTestnet       bool
}

// Networks is the registry of chains this service settles on.
var Networks = map[string]NetworkConfig{
	"base": {
		Name:           "base",
		DisplayName:    "Base",
		ChainID:        8453,
		USDCContract:   "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		EIP712Name:     "USD Coin",
		EIP712Version:  "2",
		RPCEndpointEnv: "BASE_RPC_ENDPOINT",
		DefaultRPC:     "https://base.publicnode.com",
		FacilitatorURL: "https://x402.org/facilitator",
		IsTestnet:      false,
	},
	"base-sepolia": {
		Name:           "base-sepolia",
		DisplayName:    "Base Sepolia",
		ChainID:        84532,
		USDCContract:   "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		EIP712Name:     "USDC",
		EIP712Version:  "2",
		RPCEndpointEnv: "BASE_SEPOLIA_RPC_ENDPOINT",
		DefaultRPC:     "https://base-sepolia.publicnode.com",
		FacilitatorURL: "https://x402.org/facilitator",
		IsTestnet:      true,
	},
}

// Network looks up a network by name, honoring the testnet gate.
func Network(name string, includeTestnets bool) (NetworkConfig, error) {
	cfg, ok := Networks[name]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unsupported network: %s", name)
	}
	if cfg.IsTestnet && !includeTestnets {
		return NetworkConfig{}, fmt.Errorf("testnet payments disabled: %s", name)
	}
	return cfg, nil
}

// RPCEndpoint returns the configured RPC endpoint for the network, falling
// back to a public default.
func (n NetworkConfig) RPCEndpoint() string {
	if endpoint := os.Getenv(n.RPCEndpointEnv); endpoint != "" {
		return endpoint
	}
	return n.DefaultRPC
}
