package clicks

import (
	"context"
	"time"
)

// Dimension selects a breakdown axis for analytics queries.
type Dimension string

const (
	DimensionCountry  Dimension = "country"
	DimensionDevice   Dimension = "device"
	DimensionBrowser  Dimension = "browser"
	DimensionReferrer Dimension = "referrer"
)

// BucketCount is one row of a breakdown query.
type BucketCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// DayCount is one point of a daily time series.
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// EventStore is the persistent, append-only click-event log. All
// counting queries exclude bot events unless stated otherwise.
type EventStore interface {
	// Insert appends exactly one immutable event.
	Insert(ctx context.Context, event *ClickEvent) error

	// History summarizes prior non-bot events for a visitor+link pair.
	History(ctx context.Context, code Code, hashedIP string) (VisitorHistory, error)

	// CountTotal counts non-bot events for the code.
	CountTotal(ctx context.Context, code Code) (int64, error)

	// CountUnique counts distinct hashed IPs among non-bot events.
	CountUnique(ctx context.Context, code Code) (int64, error)

	// CountRange counts non-bot events in [from, to).
	CountRange(ctx context.Context, code Code, from, to time.Time) (int64, error)

	// CountUniqueRange counts distinct hashed IPs among non-bot events
	// in [from, to).
	CountUniqueRange(ctx context.Context, code Code, from, to time.Time) (int64, error)

	// CountSince counts non-bot events at or after since.
	CountSince(ctx context.Context, code Code, since time.Time) (int64, error)

	// LastClickAt returns the newest non-bot event time, zero when none.
	LastClickAt(ctx context.Context, code Code) (time.Time, error)

	// CountByOwner counts non-bot events across an owner's links.
	CountByOwner(ctx context.Context, ownerID string) (int64, error)

	// CountByOwnerSince counts an owner's non-bot events at or after since.
	CountByOwnerSince(ctx context.Context, ownerID string, since time.Time) (int64, error)

	// TopBreakdown returns the most frequent values of one dimension
	// among non-bot events in [from, to).
	TopBreakdown(ctx context.Context, code Code, dim Dimension, from, to time.Time, limit int) ([]BucketCount, error)

	// DailySeries buckets non-bot events per calendar day in [from, to).
	DailySeries(ctx context.Context, code Code, from, to time.Time) ([]DayCount, error)

	// PurgeLink removes all events of a permanently deleted link.
	PurgeLink(ctx context.Context, linkID string) error
}

// AggregateStore holds the mutable derived counter caches.
type AggregateStore interface {
	UpsertLink(ctx context.Context, agg *LinkAggregate) error
	GetLink(ctx context.Context, code Code) (*LinkAggregate, error)
	UpsertOwner(ctx context.Context, usage *OwnerUsage) error
	GetOwner(ctx context.Context, ownerID string) (*OwnerUsage, error)
}

// LinkResolver resolves short codes to link identity and enumerates
// links for batch recomputation.
type LinkResolver interface {
	Resolve(ctx context.Context, code Code) (*Link, error)
	ListActive(ctx context.Context) ([]Link, error)
	ListOwners(ctx context.Context) ([]string, error)
	CountActiveByOwner(ctx context.Context, ownerID string) (int64, error)
}

// Clock supplies time and the local timezone used for today/week/month
// boundaries.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock is the wall clock.
type SystemClock struct {
	Loc *time.Location
}

func (c SystemClock) Now() time.Time { return time.Now() }

func (c SystemClock) Location() *time.Location {
	if c.Loc == nil {
		return time.Local
	}

	return c.Loc
}

// StartOfDay returns local midnight of t's day.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns local midnight of the Monday of t's week.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)

	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0

	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns local midnight of the first day of t's month.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)

	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}
