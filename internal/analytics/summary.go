// Package analytics answers read queries over the click-event log.
// Everything it reports is computed from non-bot events only.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/linkpulse/linkpulse/internal/clicks"
)

// topLimit is how many rows each breakdown returns.
const topLimit = 10

// Summary is the analytics response for one short link over a range.
type Summary struct {
	ShortCode    clicks.Code          `json:"shortCode"`
	From         time.Time            `json:"from"`
	To           time.Time            `json:"to"`
	Total        int64                `json:"total"`
	Unique       int64                `json:"unique"`
	TopCountries []clicks.BucketCount `json:"topCountries"`
	TopDevices   []clicks.BucketCount `json:"topDevices"`
	TopBrowsers  []clicks.BucketCount `json:"topBrowsers"`
	TopReferrers []clicks.BucketCount `json:"topReferrers"`
	Daily        []clicks.DayCount    `json:"daily"`
}

// Service computes analytics summaries.
type Service struct {
	events   clicks.EventStore
	resolver clicks.LinkResolver
	clock    clicks.Clock
}

// NewService creates an analytics service.
func NewService(events clicks.EventStore, resolver clicks.LinkResolver, clock clicks.Clock) *Service {
	return &Service{
		events:   events,
		resolver: resolver,
		clock:    clock,
	}
}

// Summary builds the analytics summary for one short code. A zero from
// or to defaults to the trailing 30 days ending now. Unknown codes
// return clicks.ErrLinkNotFound.
func (s *Service) Summary(ctx context.Context, code clicks.Code, from, to time.Time) (*Summary, error) {
	if _, err := s.resolver.Resolve(ctx, code); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	if to.IsZero() {
		to = now
	}

	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	summary := &Summary{
		ShortCode: code,
		From:      from,
		To:        to,
	}

	var err error

	// Totals honor the same [from, to) window as the breakdowns and the
	// daily series, so Total always equals the sum of Daily.
	if summary.Total, err = s.events.CountRange(ctx, code, from, to); err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}

	if summary.Unique, err = s.events.CountUniqueRange(ctx, code, from, to); err != nil {
		return nil, fmt.Errorf("count unique: %w", err)
	}

	breakdowns := []struct {
		dim  clicks.Dimension
		dest *[]clicks.BucketCount
	}{
		{clicks.DimensionCountry, &summary.TopCountries},
		{clicks.DimensionDevice, &summary.TopDevices},
		{clicks.DimensionBrowser, &summary.TopBrowsers},
		{clicks.DimensionReferrer, &summary.TopReferrers},
	}

	for _, b := range breakdowns {
		rows, err := s.events.TopBreakdown(ctx, code, b.dim, from, to, topLimit)
		if err != nil {
			return nil, fmt.Errorf("breakdown %s: %w", b.dim, err)
		}

		*b.dest = rows
	}

	if summary.Daily, err = s.events.DailySeries(ctx, code, from, to); err != nil {
		return nil, fmt.Errorf("daily series: %w", err)
	}

	return summary, nil
}
