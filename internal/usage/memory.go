package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
)

// MemoryTracker is the single-process fallback backend. Same contract as
// RedisTracker, but counters live in a mutex-guarded map and expire lazily
// on access. Counts are lost on restart; the failover wrapper logs when this
// backend takes over so the gap is visible.
type MemoryTracker struct {
	mu      sync.Mutex
	buckets map[string]memoryBucket
	clock   Clock
}

type memoryBucket struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryTracker creates a MemoryTracker. A nil clock uses time.Now.
func NewMemoryTracker(clock Clock) *MemoryTracker {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTracker{
		buckets: make(map[string]memoryBucket),
		clock:   clock,
	}
}

func (t *MemoryTracker) GetUsage(_ context.Context, address string, service pricing.ServiceType) (int64, error) {
	now := t.clock()
	key := bucketKey(address, service, now)

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok || now.After(b.expiresAt) {
		return 0, nil
	}
	return b.count, nil
}

func (t *MemoryTracker) RecordUsage(_ context.Context, address string, service pricing.ServiceType, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative usage amount %d", amount)
	}
	now := t.clock()
	key := bucketKey(address, service, now)

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok || now.After(b.expiresAt) {
		b = memoryBucket{expiresAt: now.Add(counterTTL)}
	}
	b.count += amount
	t.buckets[key] = b
	t.pruneLocked(now)
	return b.count, nil
}

func (t *MemoryTracker) WouldExceedLimit(ctx context.Context, address string, service pricing.ServiceType, amount, limit int64) (bool, error) {
	current, err := t.GetUsage(ctx, address, service)
	if err != nil {
		return false, err
	}
	return current+amount > limit, nil
}

// pruneLocked drops expired buckets. Called under t.mu on the write path so
// the map never grows beyond a couple of days of keys.
func (t *MemoryTracker) pruneLocked(now time.Time) {
	for key, b := range t.buckets {
		if now.After(b.expiresAt) {
			delete(t.buckets, key)
		}
	}
}
