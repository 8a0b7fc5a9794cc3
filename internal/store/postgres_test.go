package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopBreakdownUnknownDimension(t *testing.T) {
	// Rejected before any query runs, so no pool is needed. The error
	// must not be the row-absence sentinel, which handlers map to 404.
	events := store.NewPostgresEventStore(nil)

	_, err := events.TopBreakdown(context.Background(), "abc", clicks.Dimension("bogus"), time.Time{}, time.Now(), 10)

	require.Error(t, err)
	assert.NotErrorIs(t, err, clicks.ErrNotFound)
	assert.ErrorContains(t, err, "unknown dimension")
}
