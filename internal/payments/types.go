package payments

import (
	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
	"github.com/thisyearnofear/VOISSS-sub003/internal/tier"
)

// Method identifies how a payment is (or would be) settled.
type Method string

const (
	MethodCredits Method = "credits"
	MethodTier    Method = "tier"
	MethodX402    Method = "x402"
	MethodNone    Method = "none"
)

// Preference orders method selection when several are viable.
type Preference string

const (
	PreferCreditsFirst    Preference = "credits_first"
	PreferTierIfAvailable Preference = "tier_if_available"
	PreferX402Only        Preference = "x402_only"
)

// ValidPreference reports whether p names a known selection policy.
func ValidPreference(p Preference) bool {
	switch p {
	case PreferCreditsFirst, PreferTierIfAvailable, PreferX402Only:
		return true
	}
	return false
}

// Quote is a point-in-time estimate for one service call. Advisory only:
// settlement re-derives everything, so a quote never reserves funds or
// quota.
type Quote struct {
	Address           string
	Service           pricing.ServiceType
	Quantity          int64
	BaseCost          int64
	EstimatedCost     int64
	UnitCost          int64
	DiscountPercent   int
	Tier              tier.Tier
	TierCovers        bool
	CreditsAvailable  int64
	AvailableMethods  []Method
	RecommendedMethod Method
}

// HasMethod reports whether m is among the quote's viable methods.
func (q *Quote) HasMethod(m Method) bool {
	for _, am := range q.AvailableMethods {
		if am == m {
			return true
		}
	}
	return false
}

// Result is the outcome of a settlement attempt. FallbackAvailable invites
// the caller to retry with a different method (typically x402 after a
// credits or tier miss).
type Result struct {
	Success           bool
	Method            Method
	BaseCost          int64
	Cost              int64
	DiscountApplied   int
	Tier              tier.Tier
	TxHash            string
	RemainingCredits  *int64
	Error             string
	FallbackAvailable bool
}

// Request is one settlement attempt against the router.
type Request struct {
	Address  string
	Service  pricing.ServiceType
	Quantity int64
	Resource string
}
