package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/internal/ratelimit"
	"github.com/linkpulse/linkpulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllow(t *testing.T) {
	t.Run("allows requests under the limit", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 3},
		})

		for i := 0; i < 3; i++ {
			allowed, exceeded, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", nil)

			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Nil(t, exceeded)
		}
	})

	t.Run("rejects the request over the limit", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 2},
		})

		for i := 0; i < 2; i++ {
			allowed, _, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", nil)
			require.NoError(t, err)
			require.True(t, allowed)
		}

		allowed, exceeded, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", nil)

		require.NoError(t, err)
		assert.False(t, allowed)
		require.NotNil(t, exceeded)
		assert.Equal(t, int64(2), exceeded.Config.Max)
		assert.Equal(t, int64(3), exceeded.Count)
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 1},
		})

		allowed, _, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", nil)
		require.NoError(t, err)
		require.True(t, allowed)

		allowed, _, err = limiter.Allow(context.Background(), "POST /clicks", "client-2", nil)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("endpoints with the same window count separately", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 2},
		})

		for i := 0; i < 2; i++ {
			allowed, _, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", nil)
			require.NoError(t, err)
			require.True(t, allowed)
		}

		allowed, exceeded, err := limiter.Allow(context.Background(), "GET /links/{code}/analytics", "client-1", nil)

		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Nil(t, exceeded)
	})

	t.Run("endpoint limits override defaults", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 100},
		})

		strict := []ratelimit.LimitConfig{{Window: time.Minute, Max: 1}}

		allowed, _, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", strict)
		require.NoError(t, err)
		require.True(t, allowed)

		allowed, exceeded, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", strict)

		require.NoError(t, err)
		assert.False(t, allowed)
		require.NotNil(t, exceeded)
	})

	t.Run("the tightest of stacked windows wins", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), nil)

		limits := []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 2},
			{Window: time.Hour, Max: 100},
		}

		for i := 0; i < 2; i++ {
			allowed, _, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", limits)
			require.NoError(t, err)
			require.True(t, allowed)
		}

		allowed, exceeded, err := limiter.Allow(context.Background(), "POST /clicks", "client-1", limits)

		require.NoError(t, err)
		assert.False(t, allowed)
		require.NotNil(t, exceeded)
		assert.Equal(t, time.Minute, exceeded.Config.Window)
	})
}
