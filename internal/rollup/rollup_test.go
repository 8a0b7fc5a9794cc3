package rollup_test

import (
	"context"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/rollup"
	"github.com/linkpulse/linkpulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time           { return c.now }
func (c fixedClock) Location() *time.Location { return time.UTC }

// wednesdayNoon sits mid-week and mid-month so the day, week and month
// windows are all distinct.
var wednesdayNoon = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

func seedEvent(memory *store.MemoryStore, code clicks.Code, hashedIP string, at time.Time) {
	link, _ := memory.Resolve(context.Background(), code)

	_ = memory.Insert(context.Background(), &clicks.ClickEvent{
		ID:         hashedIP + at.String(),
		LinkID:     "lnk-" + string(code),
		OwnerID:    link.OwnerID,
		ShortCode:  code,
		OccurredAt: at,
		HashedIP:   hashedIP,
	})
}

func seedBotEvent(memory *store.MemoryStore, code clicks.Code, at time.Time) {
	event := &clicks.ClickEvent{
		ID:         "bot-" + at.String(),
		LinkID:     "lnk-" + string(code),
		OwnerID:    "owner-1",
		ShortCode:  code,
		OccurredAt: at,
		HashedIP:   "bot-hash",
	}
	event.Device.Bot.IsBot = true

	_ = memory.Insert(context.Background(), event)
}

func TestRecomputeLink(t *testing.T) {
	memory := store.NewMemoryStore()
	memory.AddLink(clicks.Link{ID: "lnk-abc", OwnerID: "owner-1", Code: "abc"})

	engine := rollup.NewEngine(memory, memory, memory, fixedClock{now: wednesdayNoon}, zap.NewNop())

	// Two visitors: one clicked last month and again today, one clicked
	// on Monday of the current week.
	seedEvent(memory, "abc", "visitor-a", wednesdayNoon.AddDate(0, -1, 0))
	seedEvent(memory, "abc", "visitor-a", wednesdayNoon.Add(-time.Hour))
	seedEvent(memory, "abc", "visitor-b", wednesdayNoon.AddDate(0, 0, -2))
	seedBotEvent(memory, "abc", wednesdayNoon.Add(-time.Minute))

	require.NoError(t, engine.RecomputeLink(context.Background(), "abc"))

	agg, err := memory.GetLink(context.Background(), "abc")
	require.NoError(t, err)

	t.Run("total excludes bots", func(t *testing.T) {
		assert.Equal(t, int64(3), agg.Total)
	})

	t.Run("unique counts distinct hashed visitors", func(t *testing.T) {
		assert.Equal(t, int64(2), agg.Unique)
	})

	t.Run("window counters", func(t *testing.T) {
		assert.Equal(t, int64(1), agg.Today)
		assert.Equal(t, int64(2), agg.ThisWeek)
		assert.Equal(t, int64(2), agg.ThisMonth)
	})

	t.Run("last click ignores the bot", func(t *testing.T) {
		assert.Equal(t, wednesdayNoon.Add(-time.Hour), agg.LastClickAt)
	})

	t.Run("recompute is idempotent", func(t *testing.T) {
		require.NoError(t, engine.RecomputeLink(context.Background(), "abc"))

		again, err := memory.GetLink(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, agg, again)
	})

	t.Run("link without events gets a zero aggregate", func(t *testing.T) {
		require.NoError(t, engine.RecomputeLink(context.Background(), "empty"))

		empty, err := memory.GetLink(context.Background(), "empty")
		require.NoError(t, err)
		assert.Zero(t, empty.Total)
		assert.True(t, empty.LastClickAt.IsZero())
	})
}

func TestRecomputeOwner(t *testing.T) {
	memory := store.NewMemoryStore()
	memory.AddLink(clicks.Link{ID: "lnk-a", OwnerID: "owner-1", Code: "a"})
	memory.AddLink(clicks.Link{ID: "lnk-b", OwnerID: "owner-1", Code: "b"})
	memory.AddLink(clicks.Link{ID: "lnk-c", OwnerID: "owner-1", Code: "c", IsDeleted: true})
	memory.AddLink(clicks.Link{ID: "lnk-x", OwnerID: "owner-2", Code: "x"})

	engine := rollup.NewEngine(memory, memory, memory, fixedClock{now: wednesdayNoon}, zap.NewNop())

	seedEvent(memory, "a", "visitor-a", wednesdayNoon.AddDate(0, -2, 0))
	seedEvent(memory, "a", "visitor-a", wednesdayNoon.Add(-time.Hour))
	seedEvent(memory, "b", "visitor-b", wednesdayNoon.Add(-time.Minute))
	seedEvent(memory, "x", "visitor-c", wednesdayNoon.Add(-time.Minute))

	require.NoError(t, engine.RecomputeOwner(context.Background(), "owner-1"))

	usage, err := memory.GetOwner(context.Background(), "owner-1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), usage.ActiveLinks)
	assert.Equal(t, int64(3), usage.Lifetime)
	assert.Equal(t, int64(2), usage.ThisMonth)
}

func TestSyncAll(t *testing.T) {
	t.Run("recomputes every active link", func(t *testing.T) {
		memory := store.NewMemoryStore()
		memory.AddLink(clicks.Link{ID: "lnk-a", OwnerID: "owner-1", Code: "a"})
		memory.AddLink(clicks.Link{ID: "lnk-b", OwnerID: "owner-2", Code: "b"})
		memory.AddLink(clicks.Link{ID: "lnk-c", OwnerID: "owner-2", Code: "c", IsDeleted: true})

		seedEvent(memory, "a", "visitor-a", wednesdayNoon.Add(-time.Hour))
		seedEvent(memory, "b", "visitor-b", wednesdayNoon.Add(-time.Hour))

		engine := rollup.NewEngine(memory, memory, memory, fixedClock{now: wednesdayNoon}, zap.NewNop())

		require.NoError(t, engine.SyncAll(context.Background()))

		for _, code := range []clicks.Code{"a", "b"} {
			agg, err := memory.GetLink(context.Background(), code)
			require.NoError(t, err)
			assert.Equal(t, int64(1), agg.Total)
		}

		_, err := memory.GetLink(context.Background(), "c")
		assert.ErrorIs(t, err, clicks.ErrNotFound)
	})

	t.Run("stops on a cancelled context", func(t *testing.T) {
		memory := store.NewMemoryStore()
		memory.AddLink(clicks.Link{ID: "lnk-a", OwnerID: "owner-1", Code: "a"})

		engine := rollup.NewEngine(memory, memory, memory, fixedClock{now: wednesdayNoon}, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, engine.SyncAll(ctx), context.Canceled)
	})
}

func TestSyncAllOwners(t *testing.T) {
	memory := store.NewMemoryStore()
	memory.AddLink(clicks.Link{ID: "lnk-a", OwnerID: "owner-1", Code: "a"})
	memory.AddLink(clicks.Link{ID: "lnk-b", OwnerID: "owner-2", Code: "b"})

	seedEvent(memory, "a", "visitor-a", wednesdayNoon.Add(-time.Hour))

	engine := rollup.NewEngine(memory, memory, memory, fixedClock{now: wednesdayNoon}, zap.NewNop())

	require.NoError(t, engine.SyncAllOwners(context.Background()))

	first, err := memory.GetOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Lifetime)

	second, err := memory.GetOwner(context.Background(), "owner-2")
	require.NoError(t, err)
	assert.Zero(t, second.Lifetime)
	assert.Equal(t, int64(1), second.ActiveLinks)
}
