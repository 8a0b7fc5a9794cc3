package analytics_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/internal/analytics"
	"github.com/linkpulse/linkpulse/internal/classify"
	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time           { return c.now }
func (c fixedClock) Location() *time.Location { return time.UTC }

var now = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

type seed struct {
	hashedIP string
	at       time.Time
	country  string
	browser  string
	source   classify.Source
	isBot    bool
}

func insert(t *testing.T, memory *store.MemoryStore, n int, s seed) {
	t.Helper()

	for i := 0; i < n; i++ {
		event := &clicks.ClickEvent{
			ID:         fmt.Sprintf("%s-%s-%d", s.hashedIP, s.at, i),
			LinkID:     "lnk-1",
			OwnerID:    "owner-1",
			ShortCode:  "abc",
			OccurredAt: s.at,
			HashedIP:   s.hashedIP,
			Location:   clicks.Location{Country: s.country},
		}
		event.Device.Type = classify.DeviceDesktop
		event.Device.Browser = s.browser
		event.Device.Bot.IsBot = s.isBot
		event.Referrer.Source = s.source

		require.NoError(t, memory.Insert(context.Background(), event))
	}
}

func TestSummary(t *testing.T) {
	memory := store.NewMemoryStore()
	memory.AddLink(clicks.Link{ID: "lnk-1", OwnerID: "owner-1", Code: "abc"})

	service := analytics.NewService(memory, memory, fixedClock{now: now})

	insert(t, memory, 3, seed{hashedIP: "visitor-a", at: now.Add(-time.Hour), country: "DE", browser: "Chrome", source: classify.SourceSearch})
	insert(t, memory, 2, seed{hashedIP: "visitor-b", at: now.AddDate(0, 0, -1), country: "US", browser: "Firefox", source: classify.SourceDirect})
	insert(t, memory, 1, seed{hashedIP: "visitor-c", at: now.AddDate(0, 0, -2), browser: "Safari", source: classify.SourceSocial})
	insert(t, memory, 4, seed{hashedIP: "crawler", at: now.Add(-time.Minute), country: "US", browser: "Chrome", source: classify.SourceDirect, isBot: true})

	// Outside the default 30-day window; must not surface anywhere.
	insert(t, memory, 1, seed{hashedIP: "visitor-old", at: now.AddDate(-1, 0, 0), country: "BR", browser: "Chrome", source: classify.SourceDirect})

	summary, err := service.Summary(context.Background(), "abc", time.Time{}, time.Time{})
	require.NoError(t, err)

	t.Run("defaults to the trailing 30 days", func(t *testing.T) {
		assert.Equal(t, now, summary.To)
		assert.Equal(t, now.AddDate(0, 0, -30), summary.From)
	})

	t.Run("totals exclude bots and out-of-window events", func(t *testing.T) {
		assert.Equal(t, int64(6), summary.Total)
		assert.Equal(t, int64(3), summary.Unique)
	})

	t.Run("countries ranked by count with unknown bucket", func(t *testing.T) {
		assert.Equal(t, []clicks.BucketCount{
			{Name: "DE", Count: 3},
			{Name: "US", Count: 2},
			{Name: "unknown", Count: 1},
		}, summary.TopCountries)
	})

	t.Run("browser breakdown", func(t *testing.T) {
		assert.Equal(t, []clicks.BucketCount{
			{Name: "Chrome", Count: 3},
			{Name: "Firefox", Count: 2},
			{Name: "Safari", Count: 1},
		}, summary.TopBrowsers)
	})

	t.Run("referrer breakdown", func(t *testing.T) {
		assert.Equal(t, []clicks.BucketCount{
			{Name: "search", Count: 3},
			{Name: "direct", Count: 2},
			{Name: "social", Count: 1},
		}, summary.TopReferrers)
	})

	t.Run("daily series in day order", func(t *testing.T) {
		assert.Equal(t, []clicks.DayCount{
			{Day: "2025-03-10", Count: 1},
			{Day: "2025-03-11", Count: 2},
			{Day: "2025-03-12", Count: 3},
		}, summary.Daily)
	})

	t.Run("breakdowns cap at ten rows", func(t *testing.T) {
		for i := 0; i < 15; i++ {
			insert(t, memory, 1, seed{
				hashedIP: fmt.Sprintf("visitor-%d", i),
				at:       now.Add(-time.Hour),
				country:  fmt.Sprintf("C%02d", i),
				browser:  "Chrome",
				source:   classify.SourceDirect,
			})
		}

		capped, err := service.Summary(context.Background(), "abc", time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Len(t, capped.TopCountries, 10)
	})

	t.Run("explicit range scopes the whole summary", func(t *testing.T) {
		from := clicks.StartOfDay(now, time.UTC)

		scoped, err := service.Summary(context.Background(), "abc", from, now.Add(time.Second))
		require.NoError(t, err)

		assert.Equal(t, from, scoped.From)

		for _, row := range scoped.TopCountries {
			assert.NotEqual(t, "US", row.Name)
		}

		// Today only: 3 visitor-a clicks plus the 15 from the cap
		// subtest. Totals must match the daily series, not lifetime.
		assert.Equal(t, int64(18), scoped.Total)
		assert.Equal(t, int64(16), scoped.Unique)

		var daySum int64
		for _, day := range scoped.Daily {
			daySum += day.Count
		}

		assert.Equal(t, scoped.Total, daySum)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := service.Summary(context.Background(), "nosuch", time.Time{}, time.Time{})
		assert.ErrorIs(t, err, clicks.ErrLinkNotFound)
	})
}
