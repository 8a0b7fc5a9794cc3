package clicks_test

import (
	"context"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/identity"
	"github.com/linkpulse/linkpulse/internal/rollup"
	"github.com/linkpulse/linkpulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testUA    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	testBotUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time           { return c.now }
func (c *fixedClock) Location() *time.Location { return time.UTC }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	store  *store.MemoryStore
	clock  *fixedClock
	engine *clicks.Engine
	rollup *rollup.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	memory := store.NewMemoryStore()
	memory.AddLink(clicks.Link{ID: "lnk-1", OwnerID: "owner-1", Code: "abc123"})
	memory.AddLink(clicks.Link{ID: "lnk-2", OwnerID: "owner-1", Code: "gone99", IsDeleted: true})

	clock := &fixedClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	logger := zap.NewNop()

	rollupEngine := rollup.NewEngine(memory, memory, memory, clock, logger)

	engine := clicks.NewEngine(
		memory,
		memory,
		identity.NewHasher("test-salt", 0),
		rollupEngine,
		nil,
		clicks.DefaultWindows(),
		clock,
		logger,
	)

	return &testEnv{store: memory, clock: clock, engine: engine, rollup: rollupEngine}
}

func (env *testEnv) record(t *testing.T, ip string, ua string) *clicks.ClickEvent {
	t.Helper()

	event, err := env.engine.RecordClick(context.Background(), clicks.ClickInput{
		ShortCode: "abc123",
		IP:        ip,
		UserAgent: ua,
	})
	require.NoError(t, err)

	return event
}

func TestRecordClick(t *testing.T) {
	t.Run("first click is recorded with all uniqueness flags", func(t *testing.T) {
		env := newTestEnv(t)

		event := env.record(t, "203.0.113.7", testUA)

		require.NotNil(t, event)
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "lnk-1", event.LinkID)
		assert.Equal(t, "owner-1", event.OwnerID)
		assert.True(t, event.IsUniqueVisitor)
		assert.True(t, event.IsNewSession)
		assert.True(t, event.IsUniqueToday)
	})

	t.Run("raw IP never reaches the event log", func(t *testing.T) {
		env := newTestEnv(t)

		event := env.record(t, "203.0.113.7", testUA)

		require.NotNil(t, event)
		assert.NotContains(t, event.HashedIP, "203.0.113.7")
		assert.NotContains(t, event.SessionID, "203.0.113.7")
		assert.NotContains(t, event.Fingerprint, "203.0.113.7")
	})

	t.Run("reload within the cooldown is silently dropped", func(t *testing.T) {
		env := newTestEnv(t)

		first := env.record(t, "203.0.113.7", testUA)
		require.NotNil(t, first)

		env.clock.Advance(30 * time.Second)

		second := env.record(t, "203.0.113.7", testUA)
		assert.Nil(t, second)
		assert.Len(t, env.store.Events(), 1)
	})

	t.Run("repeat click after the cooldown is recorded as non-unique", func(t *testing.T) {
		env := newTestEnv(t)

		env.record(t, "203.0.113.7", testUA)
		env.clock.Advance(2 * time.Minute)

		second := env.record(t, "203.0.113.7", testUA)

		require.NotNil(t, second)
		assert.False(t, second.IsUniqueVisitor)
		assert.False(t, second.IsNewSession)
		assert.False(t, second.IsUniqueToday)
	})

	t.Run("different visitors do not dedup against each other", func(t *testing.T) {
		env := newTestEnv(t)

		env.record(t, "203.0.113.7", testUA)

		other := env.record(t, "198.51.100.4", testUA)

		require.NotNil(t, other)
		assert.True(t, other.IsUniqueVisitor)
		assert.Len(t, env.store.Events(), 2)
	})

	t.Run("bot click is recorded but bypasses dedup and counting", func(t *testing.T) {
		env := newTestEnv(t)

		event := env.record(t, "203.0.113.7", testBotUA)

		require.NotNil(t, event)
		assert.True(t, event.IsBot())
		assert.False(t, event.IsUniqueVisitor)

		// A reload-speed repeat from the same bot is still stored.
		repeat := env.record(t, "203.0.113.7", testBotUA)
		require.NotNil(t, repeat)
		assert.Len(t, env.store.Events(), 2)

		// Bot traffic never shows up in the aggregate.
		require.NoError(t, env.rollup.RecomputeLink(context.Background(), "abc123"))

		agg, err := env.store.GetLink(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Zero(t, agg.Total)
	})

	t.Run("unknown short code", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.engine.RecordClick(context.Background(), clicks.ClickInput{
			ShortCode: "nosuch",
			IP:        "203.0.113.7",
			UserAgent: testUA,
		})

		assert.ErrorIs(t, err, clicks.ErrLinkNotFound)
	})

	t.Run("deleted link rejects clicks", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.engine.RecordClick(context.Background(), clicks.ClickInput{
			ShortCode: "gone99",
			IP:        "203.0.113.7",
			UserAgent: testUA,
		})

		assert.ErrorIs(t, err, clicks.ErrLinkNotFound)
	})

	t.Run("aggregate is refreshed on every accepted click", func(t *testing.T) {
		env := newTestEnv(t)

		env.record(t, "203.0.113.7", testUA)
		env.clock.Advance(2 * time.Minute)
		env.record(t, "203.0.113.7", testUA)
		env.record(t, "198.51.100.4", testUA)

		agg, err := env.store.GetLink(context.Background(), "abc123")
		require.NoError(t, err)

		assert.Equal(t, int64(3), agg.Total)
		assert.Equal(t, int64(2), agg.Unique)
		assert.Equal(t, int64(3), agg.Today)
		assert.Equal(t, env.clock.Now(), agg.LastClickAt)
	})

	t.Run("empty user agent still records with unknown classification", func(t *testing.T) {
		env := newTestEnv(t)

		event := env.record(t, "203.0.113.7", "")

		require.NotNil(t, event)
		assert.False(t, event.IsBot())
	})
}
