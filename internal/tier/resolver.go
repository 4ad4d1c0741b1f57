package tier

import (
	"context"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
)

// Resolver maps addresses to tiers via their on-chain token balance.
// Balance read failures resolve to TierNone: callers never gain privilege
// from an RPC outage.
type Resolver struct {
	reader BalanceReader
	logger logging.Logger
}

// NewResolver creates a Resolver. A nil reader resolves every address to
// TierNone (useful when no token contract is configured).
func NewResolver(reader BalanceReader, logger logging.Logger) *Resolver {
	return &Resolver{reader: reader, logger: logger}
}

// Resolve returns the address's current tier.
func (r *Resolver) Resolve(ctx context.Context, address string) Tier {
	if r.reader == nil {
		return TierNone
	}

	balance, err := r.reader.TokenBalance(ctx, address)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logging.Fields{
				"address": address,
				"error":   err,
			}).Warn("Tier balance lookup failed, defaulting to tier none")
		}
		return TierNone
	}
	return TierForBalance(balance)
}
