package clicks

import (
	"time"

	"github.com/linkpulse/linkpulse/internal/classify"
)

// Code identifies a tracked short link.
type Code string

// Link is the resolved identity of a short code, supplied by the
// short-code resolver collaborator.
type Link struct {
	ID        string
	OwnerID   string
	Code      Code
	IsDeleted bool
}

// Location is best-effort click geography. Private and local IPs carry
// no geography and bucket as empty (reported as "unknown").
type Location struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// ClickEvent is one accepted click against a tracked short link.
// Events are immutable once written and are the source of truth every
// aggregate is derived from.
type ClickEvent struct {
	ID          string            `json:"id"`
	LinkID      string            `json:"linkId"`
	OwnerID     string            `json:"ownerId"`
	ShortCode   Code              `json:"shortCode"`
	OccurredAt  time.Time         `json:"occurredAt"`
	HashedIP    string            `json:"hashedIp"`
	UserAgent   string            `json:"userAgent"`
	SessionID   string            `json:"sessionId"`
	Fingerprint string            `json:"fingerprint"`
	Device      classify.Device   `json:"device"`
	Referrer    classify.Referrer `json:"referrer"`
	Location    Location          `json:"location"`

	// Uniqueness flags resolved by the dedup engine at ingestion.
	IsUniqueVisitor bool `json:"isUniqueVisitor"`
	IsNewSession    bool `json:"isNewSession"`
	IsUniqueToday   bool `json:"isUniqueToday"`
}

// IsBot reports whether the event was classified as automated traffic.
// Bot events are kept for observability but never counted.
func (e *ClickEvent) IsBot() bool {
	return e.Device.Bot.IsBot
}

// VisitorHistory summarizes prior non-bot events for one
// (short code, hashed IP) pair. It is recomputed from the event log on
// demand and never stored.
type VisitorHistory struct {
	Total    int64     // non-bot events ever for this visitor+link
	LastSeen time.Time // zero when Total is zero
}

// ClickInput carries the raw signals of one inbound redirect.
type ClickInput struct {
	ShortCode Code
	IP        string
	UserAgent string
	Referrer  string
	Country   string
	City      string
}

// LinkAggregate is the derived per-link counter cache. It may lag the
// event log but is always exactly reconcilable to it.
type LinkAggregate struct {
	ShortCode   Code      `json:"shortCode"`
	Total       int64     `json:"total"`
	Unique      int64     `json:"unique"`
	Today       int64     `json:"today"`
	ThisWeek    int64     `json:"thisWeek"`
	ThisMonth   int64     `json:"thisMonth"`
	LastClickAt time.Time `json:"lastClickAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnerUsage is the derived per-owner usage cache.
type OwnerUsage struct {
	OwnerID     string    `json:"ownerId"`
	ActiveLinks int64     `json:"activeLinks"`
	Lifetime    int64     `json:"lifetimeClicks"`
	ThisMonth   int64     `json:"monthClicks"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RecordedEvent is the message published after a durable event write,
// consumed by the worker to re-derive aggregates out of band.
type RecordedEvent struct {
	EventID    string    `json:"eventId"`
	ShortCode  string    `json:"shortCode"`
	OwnerID    string    `json:"ownerId"`
	OccurredAt time.Time `json:"occurredAt"`
	IsBot      bool      `json:"isBot"`
}

// TopicClickRecorded is the stream topic for RecordedEvent messages.
const TopicClickRecorded = "click.recorded"
