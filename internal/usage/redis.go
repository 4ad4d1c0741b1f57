package usage

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
)

// RedisTracker is the durable, multi-instance usage backend. Increments use
// INCRBY so concurrent writers never lose updates; the second pipeline step
// arms the 25h expiry only when the key has no TTL yet (first write of the
// day).
type RedisTracker struct {
	client goredis.UniversalClient
	clock  Clock
}

// NewRedisTracker creates a RedisTracker. A nil clock uses time.Now.
func NewRedisTracker(client goredis.UniversalClient, clock Clock) *RedisTracker {
	if clock == nil {
		clock = time.Now
	}
	return &RedisTracker{client: client, clock: clock}
}

func (t *RedisTracker) GetUsage(ctx context.Context, address string, service pricing.ServiceType) (int64, error) {
	key := bucketKey(address, service, t.clock())
	val, err := t.client.Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("usage read for %s: %w", key, err)
	}
	return val, nil
}

func (t *RedisTracker) RecordUsage(ctx context.Context, address string, service pricing.ServiceType, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative usage amount %d", amount)
	}
	key := bucketKey(address, service, t.clock())

	pipe := t.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, amount)
	pipe.ExpireNX(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("usage increment for %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (t *RedisTracker) WouldExceedLimit(ctx context.Context, address string, service pricing.ServiceType, amount, limit int64) (bool, error) {
	current, err := t.GetUsage(ctx, address, service)
	if err != nil {
		return false, err
	}
	return current+amount > limit, nil
}
