package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter(3, 24*time.Hour)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 3; i >= 1; i-- {
		d, err := limiter.Check(ctx, "tenant:7")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, i-1, d.Remaining)
	}

	d, err := limiter.Check(ctx, "tenant:7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 24*time.Hour, d.RetryAfter)

	// Other keys keep their own window.
	d, err = limiter.Check(ctx, "tenant:8")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Hour)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })
	ctx := context.Background()

	d, err := limiter.Check(ctx, "tenant:7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Check(ctx, "tenant:7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	now = now.Add(time.Hour + time.Minute)

	d, err = limiter.Check(ctx, "tenant:7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
