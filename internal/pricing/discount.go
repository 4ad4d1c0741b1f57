package pricing

import (
	"fmt"
	"strings"
)

// Whitelist is a fixed set of addresses granted a 100% discount
// unconditionally. Comparison is case-insensitive.
type Whitelist map[string]struct{}

// NewWhitelist builds a whitelist from address strings.
func NewWhitelist(addresses []string) Whitelist {
	wl := make(Whitelist, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			wl[a] = struct{}{}
		}
	}
	return wl
}

// Contains reports whether the address is whitelisted.
func (wl Whitelist) Contains(address string) bool {
	_, ok := wl[strings.ToLower(strings.TrimSpace(address))]
	return ok
}

// Breakdown is the result of a cost calculation.
type Breakdown struct {
	BaseCost        int64
	DiscountedCost  int64
	DiscountPercent int
	UnitCost        int64
}

// Calculator computes discounted service costs. Discount resolution is an
// ordered pipeline: whitelist override first, then the caller's tier
// discount. New override layers slot in between without touching the cost
// arithmetic.
type Calculator struct {
	whitelist Whitelist
}

// NewCalculator creates a Calculator with the given whitelist (nil is an
// empty whitelist).
func NewCalculator(whitelist Whitelist) *Calculator {
	if whitelist == nil {
		whitelist = Whitelist{}
	}
	return &Calculator{whitelist: whitelist}
}

// Whitelisted reports whether the address gets the 100% override.
func (c *Calculator) Whitelisted(address string) bool {
	return c.whitelist.Contains(address)
}

// Calculate returns the cost breakdown for quantity units of service,
// applying the whitelist override or the supplied tier discount percent
// (0-100). Integer arithmetic throughout.
func (c *Calculator) Calculate(service ServiceType, quantity int64, tierDiscountPercent int, address string) (Breakdown, error) {
	desc, ok := ServiceCosts[service]
	if !ok {
		return Breakdown{}, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	if quantity < 0 {
		return Breakdown{}, fmt.Errorf("negative quantity %d", quantity)
	}

	cost := rawCost(desc, quantity)

	if c.whitelist.Contains(address) {
		return Breakdown{
			BaseCost:        cost,
			DiscountedCost:  0,
			DiscountPercent: 100,
			UnitCost:        desc.UnitCost,
		}, nil
	}

	percent := tierDiscountPercent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	discounted := cost - cost*int64(percent)/100

	return Breakdown{
		BaseCost:        cost,
		DiscountedCost:  discounted,
		DiscountPercent: percent,
		UnitCost:        desc.UnitCost,
	}, nil
}
