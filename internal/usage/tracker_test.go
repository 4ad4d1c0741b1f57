package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
)

func newTestRedisTracker(t *testing.T, clock Clock) (*RedisTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTracker(client, clock), mr
}

func TestRedisTrackerCounts(t *testing.T) {
	tracker, _ := newTestRedisTracker(t, nil)
	ctx := context.Background()

	got, err := tracker.GetUsage(ctx, "0xAbc", pricing.ServiceVoiceGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got, "fresh counter reads 0")

	total, err := tracker.RecordUsage(ctx, "0xAbc", pricing.ServiceVoiceGeneration, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), total)

	total, err = tracker.RecordUsage(ctx, "0xAbc", pricing.ServiceVoiceGeneration, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(750), total)

	got, err = tracker.GetUsage(ctx, "0xAbc", pricing.ServiceVoiceGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(750), got)
}

func TestRedisTrackerAddressCaseFolding(t *testing.T) {
	tracker, _ := newTestRedisTracker(t, nil)
	ctx := context.Background()

	_, err := tracker.RecordUsage(ctx, "0xABCDEF", pricing.ServiceTranscription, 10)
	require.NoError(t, err)

	got, err := tracker.GetUsage(ctx, "0xabcdef", pricing.ServiceTranscription)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got, "checksum casing must not split buckets")
}

func TestRedisTrackerIsolation(t *testing.T) {
	tracker, _ := newTestRedisTracker(t, nil)
	ctx := context.Background()

	_, err := tracker.RecordUsage(ctx, "0xaaa", pricing.ServiceVoiceGeneration, 100)
	require.NoError(t, err)
	_, err = tracker.RecordUsage(ctx, "0xaaa", pricing.ServiceDubbing, 30)
	require.NoError(t, err)
	_, err = tracker.RecordUsage(ctx, "0xbbb", pricing.ServiceVoiceGeneration, 7)
	require.NoError(t, err)

	for _, tc := range []struct {
		address string
		service pricing.ServiceType
		want    int64
	}{
		{"0xaaa", pricing.ServiceVoiceGeneration, 100},
		{"0xaaa", pricing.ServiceDubbing, 30},
		{"0xbbb", pricing.ServiceVoiceGeneration, 7},
		{"0xbbb", pricing.ServiceDubbing, 0},
	} {
		got, err := tracker.GetUsage(ctx, tc.address, tc.service)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s/%s", tc.address, tc.service)
	}
}

func TestRedisTrackerDailyReset(t *testing.T) {
	now := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker, _ := newTestRedisTracker(t, clock)
	ctx := context.Background()

	_, err := tracker.RecordUsage(ctx, "0xabc", pricing.ServiceVoiceGeneration, 9_000)
	require.NoError(t, err)

	// Cross the UTC midnight boundary: yesterday's bucket no longer counts.
	now = now.Add(1 * time.Hour)

	got, err := tracker.GetUsage(ctx, "0xabc", pricing.ServiceVoiceGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got, "new UTC day starts at 0")

	exceeded, err := tracker.WouldExceedLimit(ctx, "0xabc", pricing.ServiceVoiceGeneration, 10_000, 10_000)
	require.NoError(t, err)
	assert.False(t, exceeded, "full quota available after reset")
}

func TestRedisTrackerExpirySet(t *testing.T) {
	tracker, mr := newTestRedisTracker(t, nil)
	ctx := context.Background()

	_, err := tracker.RecordUsage(ctx, "0xabc", pricing.ServiceStorage, 1)
	require.NoError(t, err)

	key := bucketKey("0xabc", pricing.ServiceStorage, time.Now())
	ttl := mr.TTL(key)
	assert.Equal(t, counterTTL, ttl, "first write arms the 25h expiry")

	// A second write must not rearm the TTL.
	mr.SetTTL(key, time.Hour)
	_, err = tracker.RecordUsage(ctx, "0xabc", pricing.ServiceStorage, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestWouldExceedLimit(t *testing.T) {
	tracker, _ := newTestRedisTracker(t, nil)
	ctx := context.Background()

	_, err := tracker.RecordUsage(ctx, "0xabc", pricing.ServiceTranscription, 590)
	require.NoError(t, err)

	exceeded, err := tracker.WouldExceedLimit(ctx, "0xabc", pricing.ServiceTranscription, 10, 600)
	require.NoError(t, err)
	assert.False(t, exceeded, "exactly at the limit is allowed")

	exceeded, err = tracker.WouldExceedLimit(ctx, "0xabc", pricing.ServiceTranscription, 11, 600)
	require.NoError(t, err)
	assert.True(t, exceeded)
}

func TestMemoryTrackerMatchesContract(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tracker := NewMemoryTracker(func() time.Time { return now })
	ctx := context.Background()

	total, err := tracker.RecordUsage(ctx, "0xAbc", pricing.ServiceVoiceGeneration, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)

	got, err := tracker.GetUsage(ctx, "0xABC", pricing.ServiceVoiceGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	// Next day reads zero.
	now = now.Add(24 * time.Hour)
	got, err = tracker.GetUsage(ctx, "0xabc", pricing.ServiceVoiceGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = tracker.RecordUsage(ctx, "0xabc", pricing.ServiceVoiceGeneration, -1)
	assert.Error(t, err, "negative amounts rejected")
}

type failingTracker struct{ err error }

func (f *failingTracker) GetUsage(context.Context, string, pricing.ServiceType) (int64, error) {
	return 0, f.err
}

func (f *failingTracker) RecordUsage(context.Context, string, pricing.ServiceType, int64) (int64, error) {
	return 0, f.err
}

func (f *failingTracker) WouldExceedLimit(context.Context, string, pricing.ServiceType, int64, int64) (bool, error) {
	return false, f.err
}

func TestFailoverTracker(t *testing.T) {
	primary := &failingTracker{err: errors.New("connection refused")}
	fallback := NewMemoryTracker(nil)
	tracker := NewFailoverTracker(primary, fallback, nil)
	ctx := context.Background()

	assert.False(t, tracker.FailedOver())

	total, err := tracker.RecordUsage(ctx, "0xabc", pricing.ServiceDubbing, 60)
	require.NoError(t, err, "fallback absorbs the primary failure")
	assert.Equal(t, int64(60), total)
	assert.True(t, tracker.FailedOver(), "switch trips on first failure")

	// Later reads stay on the fallback even though the primary "recovered".
	primary.err = nil
	got, err := tracker.GetUsage(ctx, "0xabc", pricing.ServiceDubbing)
	require.NoError(t, err)
	assert.Equal(t, int64(60), got, "counters stay consistent after failover")
}

func TestFailoverTrackerHealthyPrimary(t *testing.T) {
	primary := NewMemoryTracker(nil)
	fallback := NewMemoryTracker(nil)
	tracker := NewFailoverTracker(primary, fallback, nil)
	ctx := context.Background()

	_, err := tracker.RecordUsage(ctx, "0xabc", pricing.ServiceStorage, 3)
	require.NoError(t, err)
	assert.False(t, tracker.FailedOver())

	got, err := primary.GetUsage(ctx, "0xabc", pricing.ServiceStorage)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got, "writes land on the primary")
}
