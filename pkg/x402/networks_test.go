package x402

import "testing"

func TestNetworkLookup(t *testing.T) {
	t.Run("mainnet", func(t *testing.T) {
		network, err := Network("base", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if network.ChainID != 8453 {
			t.Errorf("base chain id = %d", network.ChainID)
		}
		if network.IsTestnet {
			t.Error("base is not a testnet")
		}
	})

	t.Run("testnet excluded by default", func(t *testing.T) {
		if _, err := Network("base-sepolia", false); err == nil {
			t.Error("testnet lookup should fail when excluded")
		}
	})

	t.Run("testnet included on request", func(t *testing.T) {
		network, err := Network("base-sepolia", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if network.ChainID != 84532 {
			t.Errorf("base-sepolia chain id = %d", network.ChainID)
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		if _, err := Network("dogechain", true); err == nil {
			t.Error("unknown network should fail")
		}
	})
}

func TestNetworkEIP712Domains(t *testing.T) {
	base, _ := Network("base", false)
	if base.EIP712Name != "USD Coin" || base.EIP712Version != "2" {
		t.Errorf("base domain = %s/%s", base.EIP712Name, base.EIP712Version)
	}
	sepolia, _ := Network("base-sepolia", true)
	if sepolia.EIP712Name != "USDC" || sepolia.EIP712Version != "2" {
		t.Errorf("base-sepolia domain = %s/%s", sepolia.EIP712Name, sepolia.EIP712Version)
	}
}

func TestRPCEndpointEnvOverride(t *testing.T) {
	network, _ := Network("base", false)
	if network.RPCEndpoint() == "" {
		t.Error("default RPC endpoint must not be empty")
	}

	t.Setenv(network.RPCEndpointEnv, "https://rpc.example.com")
	if got := network.RPCEndpoint(); got != "https://rpc.example.com" {
		t.Errorf("env override ignored, got %s", got)
	}
}
