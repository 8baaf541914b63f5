package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/berair/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLimiterDisabledAllowsEverything(t *testing.T) {
	limiter := NewLoginLimiter(config.Config{}, nil)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowIP(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.AllowNIK(context.Background(), "3201000000000001")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilLockerIsNotConfigured(t *testing.T) {
	locker := NewLocker(LockerParams{})
	assert.Nil(t, locker)

	lease, ok, err := locker.AcquirePeriod(context.Background(), "monthly_snapshot", "2025-03", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.False(t, ok)
	assert.Nil(t, lease)
	assert.NoError(t, lease.Release(context.Background()))
}

func TestPeriodLockKey(t *testing.T) {
	assert.Equal(t, "berair:lock:monthly_snapshot:2025-03", PeriodLockKey("monthly_snapshot", "2025-03"))
	assert.Equal(t, "berair:lock:monthly_snapshot:2025-04", PeriodLockKey("monthly_snapshot", " 2025-04 "))
	assert.NotEqual(t, PeriodLockKey("monthly_snapshot", "2025-03"), PeriodLockKey("monthly_snapshot", "2025-04"))
}

func TestNilTokenBucketRejects(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(true, 0, 1))
	assert.Equal(t, 5*time.Second, retryAfter(false, 0, 0.2))
	assert.Equal(t, 500*time.Millisecond, retryAfter(false, 0.5, 1))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
	assert.Equal(t, 50*time.Second, defaultBucketTTL(0.2, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
}
