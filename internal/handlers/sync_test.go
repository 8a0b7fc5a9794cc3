package handlers_test

import (
	"context"
	"testing"

	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStatistics(t *testing.T) {
	t.Run("syncs one code", func(t *testing.T) {
		fix := newFixture()
		recordClicks(t, fix, "203.0.113.7")

		resp, err := fix.sync.SyncStatistics(context.Background(), &handlers.SyncStatisticsRequest{Code: "abc123"})

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
	})

	t.Run("syncs every active link when no code is given", func(t *testing.T) {
		fix := newFixture()
		fix.store.AddLink(clicks.Link{ID: "lnk-2", OwnerID: "owner-2", Code: "xyz789"})

		resp, err := fix.sync.SyncStatistics(context.Background(), &handlers.SyncStatisticsRequest{})

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)

		for _, code := range []clicks.Code{"abc123", "xyz789"} {
			agg, err := fix.store.GetLink(context.Background(), code)
			require.NoError(t, err)
			assert.Zero(t, agg.Total)
		}
	})
}

func TestSyncUsage(t *testing.T) {
	t.Run("syncs one owner", func(t *testing.T) {
		fix := newFixture()
		recordClicks(t, fix, "203.0.113.7")

		resp, err := fix.sync.SyncUsage(context.Background(), &handlers.SyncUsageRequest{OwnerID: "owner-1"})

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)

		usage, err := fix.store.GetOwner(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), usage.Lifetime)
	})

	t.Run("syncs every owner when none is given", func(t *testing.T) {
		fix := newFixture()
		fix.store.AddLink(clicks.Link{ID: "lnk-2", OwnerID: "owner-2", Code: "xyz789"})

		resp, err := fix.sync.SyncUsage(context.Background(), &handlers.SyncUsageRequest{})

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)

		for _, owner := range []string{"owner-1", "owner-2"} {
			usage, err := fix.store.GetOwner(context.Background(), owner)
			require.NoError(t, err)
			assert.Equal(t, int64(1), usage.ActiveLinks)
		}
	})
}

func TestPurgeEvents(t *testing.T) {
	t.Run("purges events of a deleted link", func(t *testing.T) {
		fix := newFixture()
		fix.store.AddLink(clicks.Link{ID: "lnk-2", OwnerID: "owner-2", Code: "gone99", IsDeleted: true})

		recordClicks(t, fix, "203.0.113.7")
		require.NoError(t, fix.store.Insert(context.Background(), &clicks.ClickEvent{
			ID:        "evt-deleted",
			LinkID:    "lnk-2",
			ShortCode: "gone99",
		}))

		resp, err := fix.sync.PurgeEvents(context.Background(), &handlers.PurgeEventsRequest{Code: "gone99"})

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)

		for _, event := range fix.store.Events() {
			assert.NotEqual(t, "lnk-2", event.LinkID)
		}

		assert.NotEmpty(t, fix.store.Events())
	})

	t.Run("refuses a live link", func(t *testing.T) {
		fix := newFixture()
		recordClicks(t, fix, "203.0.113.7")

		_, err := fix.sync.PurgeEvents(context.Background(), &handlers.PurgeEventsRequest{Code: "abc123"})

		assertStatus(t, err, 409)
		assert.Len(t, fix.store.Events(), 1)
	})

	t.Run("unknown code is a 404", func(t *testing.T) {
		fix := newFixture()

		_, err := fix.sync.PurgeEvents(context.Background(), &handlers.PurgeEventsRequest{Code: "nope00"})

		assertStatus(t, err, 404)
	})
}
