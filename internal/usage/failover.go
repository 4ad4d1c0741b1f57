package usage

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
)

// FailoverTracker wraps a durable primary with an in-process fallback. A
// primary failure trips a one-way switch: all later calls go to the
// fallback, with a single warning logged at the moment of failover. The
// switch never flaps back mid-session, so counters stay consistent within a
// process even if Redis recovers.
type FailoverTracker struct {
	primary  Tracker
	fallback Tracker
	logger   logging.Logger

	failedOver atomic.Bool
	warnOnce   sync.Once
}

// NewFailoverTracker wraps primary with fallback. Both must be non-nil.
func NewFailoverTracker(primary, fallback Tracker, logger logging.Logger) *FailoverTracker {
	return &FailoverTracker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// FailedOver reports whether the fallback backend is active.
func (t *FailoverTracker) FailedOver() bool {
	return t.failedOver.Load()
}

func (t *FailoverTracker) tripFailover(err error) {
	t.failedOver.Store(true)
	t.warnOnce.Do(func() {
		if t.logger != nil {
			t.logger.WithFields(logging.Fields{
				"error": err,
			}).Warn("Usage tracker primary unreachable, failing over to in-process counters")
		}
	})
}

func (t *FailoverTracker) GetUsage(ctx context.Context, address string, service pricing.ServiceType) (int64, error) {
	if !t.failedOver.Load() {
		count, err := t.primary.GetUsage(ctx, address, service)
		if err == nil {
			return count, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		t.tripFailover(err)
	}
	return t.fallback.GetUsage(ctx, address, service)
}

func (t *FailoverTracker) RecordUsage(ctx context.Context, address string, service pricing.ServiceType, amount int64) (int64, error) {
	if !t.failedOver.Load() {
		total, err := t.primary.RecordUsage(ctx, address, service, amount)
		if err == nil {
			return total, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		t.tripFailover(err)
	}
	return t.fallback.RecordUsage(ctx, address, service, amount)
}

func (t *FailoverTracker) WouldExceedLimit(ctx context.Context, address string, service pricing.ServiceType, amount, limit int64) (bool, error) {
	current, err := t.GetUsage(ctx, address, service)
	if err != nil {
		return false, err
	}
	return current+amount > limit, nil
}
