package tier

import (
	"math/big"

	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
)

// Tier is a discrete access level derived from an address's VOISSS token
// holding. Tiers grant free daily quota for certain services plus a
// percentage discount on everything else.
type Tier string

const (
	TierNone    Tier = "none"
	TierBasic   Tier = "basic"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// tokenDecimals is the VOISSS token's on-chain precision.
const tokenDecimals = 18

func tokens(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}

// thresholds lists minimum token balances per tier, highest first. The first
// threshold at or below the balance wins.
var thresholds = []struct {
	Tier    Tier
	Minimum *big.Int
}{
	{TierPremium, tokens(200_000)},
	{TierPro, tokens(50_000)},
	{TierBasic, tokens(10_000)},
}

// discounts maps each tier to its percentage discount on metered calls.
var discounts = map[Tier]int{
	TierNone:    0,
	TierBasic:   10,
	TierPro:     25,
	TierPremium: 50,
}

// dailyLimits is the free daily quota per tier and service, in the service's
// quantity unit (characters, seconds, or requests). A service absent from a
// tier's map is not covered by that tier.
var dailyLimits = map[Tier]map[pricing.ServiceType]int64{
	TierBasic: {
		pricing.ServiceVoiceGeneration: 10_000,
		pricing.ServiceTranscription:   600,
	},
	TierPro: {
		pricing.ServiceVoiceGeneration:     50_000,
		pricing.ServiceTranscription:       3_000,
		pricing.ServiceVoiceTransformation: 1_800,
		pricing.ServiceDubbing:             600,
	},
	TierPremium: {
		pricing.ServiceVoiceGeneration:     200_000,
		pricing.ServiceTranscription:       12_000,
		pricing.ServiceVoiceTransformation: 7_200,
		pricing.ServiceDubbing:             2_400,
		pricing.ServiceStorage:             100,
		pricing.ServiceVideoExport:         5,
	},
}

// TierForBalance maps a token balance to a tier, checking from the highest
// threshold down. A nil or sub-basic balance is TierNone.
func TierForBalance(balance *big.Int) Tier {
	if balance == nil {
		return TierNone
	}
	for _, t := range thresholds {
		if balance.Cmp(t.Minimum) >= 0 {
			return t.Tier
		}
	}
	return TierNone
}

// DiscountPercent returns the tier's discount percentage (0-100).
func DiscountPercent(t Tier) int {
	return discounts[t]
}

// Covers reports whether the tier's free quota includes the service.
func Covers(t Tier, service pricing.ServiceType) bool {
	_, ok := dailyLimits[t][service]
	return ok
}

// DailyLimit returns the tier's free daily quota for the service, or 0 if
// the service is not covered.
func DailyLimit(t Tier, service pricing.ServiceType) int64 {
	return dailyLimits[t][service]
}

// Valid reports whether t names a known tier.
func Valid(t Tier) bool {
	_, ok := discounts[t]
	return ok
}
