package pricing

import "testing"

func TestCalculateCostScaling(t *testing.T) {
	calc := NewCalculator(nil)

	t.Run("per-character with minimum", func(t *testing.T) {
		// 50 chars at 1 unit/char is under the 100-unit floor
		got, err := calc.Calculate(ServiceVoiceGeneration, 50, 0, "0xabc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.BaseCost != 100 {
			t.Errorf("expected minimum cost 100, got %d", got.BaseCost)
		}
	})

	t.Run("per-character above minimum", func(t *testing.T) {
		got, err := calc.Calculate(ServiceVoiceGeneration, 1000, 0, "0xabc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.BaseCost != 1000 {
			t.Errorf("expected cost 1000, got %d", got.BaseCost)
		}
	})

	t.Run("clamped at maximum", func(t *testing.T) {
		got, err := calc.Calculate(ServiceVoiceGeneration, 10_000_000, 0, "0xabc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.BaseCost != 100_000 {
			t.Errorf("expected cap 100000, got %d", got.BaseCost)
		}
	})

	t.Run("fixed price ignores quantity", func(t *testing.T) {
		one, _ := calc.Calculate(ServiceNFTMint, 1, 0, "0xabc")
		many, _ := calc.Calculate(ServiceNFTMint, 500, 0, "0xabc")
		if one.BaseCost != many.BaseCost || one.BaseCost != 100_000 {
			t.Errorf("fixed cost should be 100000 regardless of quantity, got %d / %d", one.BaseCost, many.BaseCost)
		}
	})

	t.Run("unknown service errors", func(t *testing.T) {
		if _, err := calc.Calculate("teleportation", 1, 0, "0xabc"); err == nil {
			t.Error("expected error for unknown service")
		}
	})

	t.Run("negative quantity errors", func(t *testing.T) {
		if _, err := calc.Calculate(ServiceVoiceGeneration, -5, 0, "0xabc"); err == nil {
			t.Error("expected error for negative quantity")
		}
	})
}

func TestCalculateMonotonicity(t *testing.T) {
	calc := NewCalculator(nil)
	prev := int64(-1)
	for _, quantity := range []int64{0, 1, 50, 100, 1000, 50_000, 100_000, 10_000_000} {
		got, err := calc.Calculate(ServiceTranscription, quantity, 0, "0xabc")
		if err != nil {
			t.Fatalf("unexpected error at quantity %d: %v", quantity, err)
		}
		if got.BaseCost < prev {
			t.Errorf("cost decreased at quantity %d: %d < %d", quantity, got.BaseCost, prev)
		}
		prev = got.BaseCost
	}
}

func TestTierDiscount(t *testing.T) {
	calc := NewCalculator(nil)

	// 1000 units at 10% should deduct exactly 100
	got, err := calc.Calculate(ServiceVoiceGeneration, 1000, 10, "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DiscountedCost != 900 {
		t.Errorf("expected discounted cost 900, got %d", got.DiscountedCost)
	}
	if got.DiscountPercent != 10 {
		t.Errorf("expected percent 10, got %d", got.DiscountPercent)
	}

	// Integer math: 25% of 999 units rounds toward the customer's favor
	got, _ = calc.Calculate(ServiceVoiceGeneration, 999, 25, "0xabc")
	if got.DiscountedCost != 999-999*25/100 {
		t.Errorf("unexpected integer discount result %d", got.DiscountedCost)
	}

	// Out-of-range percents clamp
	got, _ = calc.Calculate(ServiceVoiceGeneration, 1000, 150, "0xabc")
	if got.DiscountedCost != 0 {
		t.Errorf("percent above 100 should clamp to free, got %d", got.DiscountedCost)
	}
}

func TestWhitelistSupremacy(t *testing.T) {
	calc := NewCalculator(NewWhitelist([]string{"0xAbCdEf0123456789abcdef0123456789ABCDEF01"}))

	for _, percent := range []int{0, 10, 50} {
		got, err := calc.Calculate(ServiceDubbing, 120, percent, "0xabcdef0123456789abcdef0123456789abcdef01")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.DiscountedCost != 0 || got.DiscountPercent != 100 {
			t.Errorf("whitelisted address should pay 0 at 100%% (tier %d%%), got cost %d percent %d",
				percent, got.DiscountedCost, got.DiscountPercent)
		}
	}

	// Non-whitelisted address still pays
	got, _ := calc.Calculate(ServiceDubbing, 120, 0, "0x1111111111111111111111111111111111111111")
	if got.DiscountedCost == 0 {
		t.Error("non-whitelisted address should not be free")
	}
}

func TestWhitelistCaseInsensitive(t *testing.T) {
	wl := NewWhitelist([]string{" 0xABCD1234abcd1234ABCD1234abcd1234ABCD1234 ", ""})
	if !wl.Contains("0xabcd1234abcd1234abcd1234abcd1234abcd1234") {
		t.Error("lowercase lookup should match")
	}
	if wl.Contains("") {
		t.Error("empty address should never match")
	}
}
