package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordClicks ingests one click per IP, spacing the clock so none of
// them dedup against each other.
func recordClicks(t *testing.T, fix *fixture, ips ...string) {
	t.Helper()

	for _, ip := range ips {
		req := &handlers.RecordClickRequest{}
		req.Body.ShortCode = "abc123"
		req.Body.IP = ip
		req.Body.UserAgent = testUserAgent
		req.Body.Referrer = "https://www.google.com/search?q=links"
		req.Body.Country = "DE"

		resp, err := fix.click.RecordClick(context.Background(), req)
		require.NoError(t, err)
		require.True(t, resp.Body.Recorded)

		fix.clock.now = fix.clock.now.Add(2 * time.Minute)
	}
}

func TestGetAnalytics(t *testing.T) {
	t.Run("summarizes recorded traffic", func(t *testing.T) {
		fix := newFixture()
		recordClicks(t, fix, "203.0.113.7", "203.0.113.7", "198.51.100.4")

		resp, err := fix.analytics.GetAnalytics(context.Background(), &handlers.AnalyticsRequest{Code: "abc123"})

		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.Body.Total)
		assert.Equal(t, int64(2), resp.Body.Unique)
		require.NotEmpty(t, resp.Body.TopCountries)
		assert.Equal(t, "DE", resp.Body.TopCountries[0].Name)
		require.NotEmpty(t, resp.Body.TopReferrers)
		assert.Equal(t, "search", resp.Body.TopReferrers[0].Name)
	})

	t.Run("unknown short code returns 404", func(t *testing.T) {
		fix := newFixture()

		_, err := fix.analytics.GetAnalytics(context.Background(), &handlers.AnalyticsRequest{Code: "nosuch"})

		assertStatus(t, err, 404)
	})
}

func TestGetLinkStats(t *testing.T) {
	t.Run("returns the cached counters", func(t *testing.T) {
		fix := newFixture()
		recordClicks(t, fix, "203.0.113.7", "198.51.100.4")

		resp, err := fix.analytics.GetLinkStats(context.Background(), &handlers.LinkStatsRequest{Code: "abc123"})

		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Body.Total)
		assert.Equal(t, int64(2), resp.Body.Unique)
	})

	t.Run("missing aggregate returns 404", func(t *testing.T) {
		fix := newFixture()

		_, err := fix.analytics.GetLinkStats(context.Background(), &handlers.LinkStatsRequest{Code: "abc123"})

		assertStatus(t, err, 404)
	})
}

func TestGetOwnerUsage(t *testing.T) {
	t.Run("returns the cached usage", func(t *testing.T) {
		fix := newFixture()
		recordClicks(t, fix, "203.0.113.7")

		require.NoError(t, fix.rollup.RecomputeOwner(context.Background(), "owner-1"))

		resp, err := fix.analytics.GetOwnerUsage(context.Background(), &handlers.OwnerUsageRequest{OwnerID: "owner-1"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Body.ActiveLinks)
		assert.Equal(t, int64(1), resp.Body.Lifetime)
	})

	t.Run("unknown owner returns 404", func(t *testing.T) {
		fix := newFixture()

		_, err := fix.analytics.GetOwnerUsage(context.Background(), &handlers.OwnerUsageRequest{OwnerID: "nobody"})

		assertStatus(t, err, 404)
	})
}
