// Package usage tracks per-address, per-service consumption in UTC-day
// buckets. Counters increment atomically and expire shortly after their day
// ends, so tier quotas reset daily without a sweeper.
package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
)

// counterTTL keeps a bucket alive past its UTC day to tolerate clock skew
// between instances.
const counterTTL = 25 * time.Hour

// Tracker is the usage counter contract shared by the Redis and in-process
// backends.
type Tracker interface {
	// GetUsage returns the address's consumption of the service for the
	// current UTC day, 0 if none.
	GetUsage(ctx context.Context, address string, service pricing.ServiceType) (int64, error)

	// RecordUsage atomically adds amount to the counter and returns the new
	// total.
	RecordUsage(ctx context.Context, address string, service pricing.ServiceType, amount int64) (int64, error)

	// WouldExceedLimit reports whether recording amount would push the
	// counter past limit.
	WouldExceedLimit(ctx context.Context, address string, service pricing.ServiceType, amount, limit int64) (bool, error)
}

// Clock supplies the current time; injectable so tests can cross day
// boundaries.
type Clock func() time.Time

// bucketKey builds the counter key for an address, service, and day.
// Addresses are lowercased so checksum casing never splits a bucket.
func bucketKey(address string, service pricing.ServiceType, day time.Time) string {
	return fmt.Sprintf("usage:%s:%s:%s",
		strings.ToLower(strings.TrimSpace(address)),
		service,
		day.UTC().Format("2006-01-02"),
	)
}
