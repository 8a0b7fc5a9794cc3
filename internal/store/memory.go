package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linkpulse/linkpulse/internal/clicks"
)

// MemoryStore is an in-memory implementation of clicks.EventStore,
// clicks.AggregateStore and clicks.LinkResolver, used in unit tests.
// Query semantics mirror the Postgres store: counting queries exclude
// bot events, missing geography buckets as "unknown".
type MemoryStore struct {
	mu         sync.RWMutex
	events     []*clicks.ClickEvent
	links      map[clicks.Code]clicks.Link
	aggregates map[clicks.Code]clicks.LinkAggregate
	owners     map[string]clicks.OwnerUsage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:      make(map[clicks.Code]clicks.Link),
		aggregates: make(map[clicks.Code]clicks.LinkAggregate),
		owners:     make(map[string]clicks.OwnerUsage),
	}
}

// AddLink registers a link for the resolver.
func (m *MemoryStore) AddLink(link clicks.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[link.Code] = link
}

// Events returns a snapshot of all stored events.
func (m *MemoryStore) Events() []*clicks.ClickEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*clicks.ClickEvent, len(m.events))
	copy(out, m.events)

	return out
}

func (m *MemoryStore) Insert(_ context.Context, event *clicks.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *event
	m.events = append(m.events, &stored)

	return nil
}

func (m *MemoryStore) History(_ context.Context, code clicks.Code, hashedIP string) (clicks.VisitorHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var history clicks.VisitorHistory

	for _, e := range m.events {
		if e.ShortCode != code || e.HashedIP != hashedIP || e.IsBot() {
			continue
		}

		history.Total++

		if e.OccurredAt.After(history.LastSeen) {
			history.LastSeen = e.OccurredAt
		}
	}

	return history, nil
}

func (m *MemoryStore) CountTotal(_ context.Context, code clicks.Code) (int64, error) {
	return m.countMatching(func(e *clicks.ClickEvent) bool {
		return e.ShortCode == code && !e.IsBot()
	}), nil
}

func (m *MemoryStore) CountUnique(_ context.Context, code clicks.Code) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)

	for _, e := range m.events {
		if e.ShortCode == code && !e.IsBot() {
			seen[e.HashedIP] = true
		}
	}

	return int64(len(seen)), nil
}

func (m *MemoryStore) CountRange(_ context.Context, code clicks.Code, from, to time.Time) (int64, error) {
	return m.countMatching(func(e *clicks.ClickEvent) bool {
		return e.ShortCode == code && !e.IsBot() &&
			!e.OccurredAt.Before(from) && e.OccurredAt.Before(to)
	}), nil
}

func (m *MemoryStore) CountUniqueRange(_ context.Context, code clicks.Code, from, to time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)

	for _, e := range m.events {
		if e.ShortCode == code && !e.IsBot() &&
			!e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			seen[e.HashedIP] = true
		}
	}

	return int64(len(seen)), nil
}

func (m *MemoryStore) CountSince(_ context.Context, code clicks.Code, since time.Time) (int64, error) {
	return m.countMatching(func(e *clicks.ClickEvent) bool {
		return e.ShortCode == code && !e.IsBot() && !e.OccurredAt.Before(since)
	}), nil
}

func (m *MemoryStore) LastClickAt(_ context.Context, code clicks.Code) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last time.Time

	for _, e := range m.events {
		if e.ShortCode == code && !e.IsBot() && e.OccurredAt.After(last) {
			last = e.OccurredAt
		}
	}

	return last, nil
}

func (m *MemoryStore) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	return m.countMatching(func(e *clicks.ClickEvent) bool {
		return e.OwnerID == ownerID && !e.IsBot()
	}), nil
}

func (m *MemoryStore) CountByOwnerSince(_ context.Context, ownerID string, since time.Time) (int64, error) {
	return m.countMatching(func(e *clicks.ClickEvent) bool {
		return e.OwnerID == ownerID && !e.IsBot() && !e.OccurredAt.Before(since)
	}), nil
}

func (m *MemoryStore) TopBreakdown(
	_ context.Context, code clicks.Code, dim clicks.Dimension, from, to time.Time, limit int,
) ([]clicks.BucketCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)

	for _, e := range m.events {
		if e.ShortCode != code || e.IsBot() ||
			e.OccurredAt.Before(from) || !e.OccurredAt.Before(to) {
			continue
		}

		counts[bucketValue(e, dim)]++
	}

	out := make([]clicks.BucketCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, clicks.BucketCount{Name: name, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Name < out[j].Name
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func bucketValue(e *clicks.ClickEvent, dim clicks.Dimension) string {
	switch dim {
	case clicks.DimensionCountry:
		if e.Location.Country == "" {
			return "unknown"
		}

		return e.Location.Country
	case clicks.DimensionDevice:
		return string(e.Device.Type)
	case clicks.DimensionBrowser:
		return e.Device.Browser
	case clicks.DimensionReferrer:
		return string(e.Referrer.Source)
	default:
		return "unknown"
	}
}

func (m *MemoryStore) DailySeries(_ context.Context, code clicks.Code, from, to time.Time) ([]clicks.DayCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)

	for _, e := range m.events {
		if e.ShortCode != code || e.IsBot() ||
			e.OccurredAt.Before(from) || !e.OccurredAt.Before(to) {
			continue
		}

		counts[e.OccurredAt.Format("2006-01-02")]++
	}

	out := make([]clicks.DayCount, 0, len(counts))
	for day, count := range counts {
		out = append(out, clicks.DayCount{Day: day, Count: count})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })

	return out, nil
}

func (m *MemoryStore) PurgeLink(_ context.Context, linkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]

	for _, e := range m.events {
		if e.LinkID != linkID {
			kept = append(kept, e)
		}
	}

	m.events = kept

	return nil
}

func (m *MemoryStore) countMatching(match func(*clicks.ClickEvent) bool) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64

	for _, e := range m.events {
		if match(e) {
			n++
		}
	}

	return n
}

func (m *MemoryStore) UpsertLink(_ context.Context, agg *clicks.LinkAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aggregates[agg.ShortCode] = *agg

	return nil
}

func (m *MemoryStore) GetLink(_ context.Context, code clicks.Code) (*clicks.LinkAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg, ok := m.aggregates[code]
	if !ok {
		return nil, clicks.ErrNotFound
	}

	return &agg, nil
}

func (m *MemoryStore) UpsertOwner(_ context.Context, usage *clicks.OwnerUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owners[usage.OwnerID] = *usage

	return nil
}

func (m *MemoryStore) GetOwner(_ context.Context, ownerID string) (*clicks.OwnerUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage, ok := m.owners[ownerID]
	if !ok {
		return nil, clicks.ErrNotFound
	}

	return &usage, nil
}

func (m *MemoryStore) Resolve(_ context.Context, code clicks.Code) (*clicks.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[code]
	if !ok {
		return nil, clicks.ErrLinkNotFound
	}

	return &link, nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]clicks.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var links []clicks.Link

	for _, link := range m.links {
		if !link.IsDeleted {
			links = append(links, link)
		}
	}

	sort.Slice(links, func(i, j int) bool { return links[i].Code < links[j].Code })

	return links, nil
}

func (m *MemoryStore) ListOwners(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)

	var owners []string

	for _, link := range m.links {
		if !seen[link.OwnerID] {
			seen[link.OwnerID] = true

			owners = append(owners, link.OwnerID)
		}
	}

	sort.Strings(owners)

	return owners, nil
}

func (m *MemoryStore) CountActiveByOwner(_ context.Context, ownerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64

	for _, link := range m.links {
		if link.OwnerID == ownerID && !link.IsDeleted {
			n++
		}
	}

	return n, nil
}
