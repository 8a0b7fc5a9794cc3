package clicks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/linkpulse/linkpulse/internal/classify"
	"github.com/linkpulse/linkpulse/internal/identity"
	"github.com/linkpulse/linkpulse/internal/messaging"
	"go.uber.org/zap"
)

// AggregateRefresher re-derives the counter cache of one link from the
// event log. Implemented by the rollup engine.
type AggregateRefresher interface {
	RecomputeLink(ctx context.Context, code Code) error
}

// Engine is the ingestion entry point: one invocation per inbound
// redirect. It keeps no mutable state of its own; every dedup and
// uniqueness decision is derived by querying the event store, so a
// restarted process loses nothing.
type Engine struct {
	resolver  LinkResolver
	events    EventStore
	hasher    *identity.Hasher
	refresher AggregateRefresher
	publish   messaging.Publish[RecordedEvent]
	windows   Windows
	clock     Clock
	logger    *zap.Logger
}

// NewEngine creates a click ingestion engine.
func NewEngine(
	resolver LinkResolver,
	events EventStore,
	hasher *identity.Hasher,
	refresher AggregateRefresher,
	publish messaging.Publish[RecordedEvent],
	windows Windows,
	clock Clock,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		resolver:  resolver,
		events:    events,
		hasher:    hasher,
		refresher: refresher,
		publish:   publish,
		windows:   windows,
		clock:     clock,
		logger:    logger,
	}
}

// RecordClick ingests one click. It returns the persisted event, or
// (nil, nil) when the click was rejected as a reload. Classification
// can never abort a click; it degrades to unknown fields instead.
// Aggregate recompute failures are logged, never surfaced: the event is
// durable and the next sync self-heals the cache.
func (e *Engine) RecordClick(ctx context.Context, input ClickInput) (*ClickEvent, error) {
	link, err := e.resolver.Resolve(ctx, input.ShortCode)
	if err != nil {
		return nil, err
	}

	if link.IsDeleted {
		return nil, ErrLinkNotFound
	}

	now := e.clock.Now()

	event := &ClickEvent{
		ID:          uuid.NewString(),
		LinkID:      link.ID,
		OwnerID:     link.OwnerID,
		ShortCode:   link.Code,
		OccurredAt:  now,
		HashedIP:    e.hasher.HashIP(input.IP),
		UserAgent:   input.UserAgent,
		SessionID:   e.hasher.SessionID(input.IP, input.UserAgent, now),
		Fingerprint: e.hasher.Fingerprint(input.IP, input.UserAgent),
		Device:      classify.ClassifyUserAgent(input.UserAgent),
		Referrer:    classify.ClassifyReferrer(input.Referrer),
		Location:    Location{Country: input.Country, City: input.City},
	}

	// Bots bypass dedup: recorded for observability, never counted
	// toward aggregates or uniqueness.
	if event.IsBot() {
		if err := e.events.Insert(ctx, event); err != nil {
			return nil, fmt.Errorf("record bot click: %w", err)
		}

		e.publishRecorded(event)

		return event, nil
	}

	history, err := e.events.History(ctx, link.Code, event.HashedIP)
	if err != nil {
		return nil, fmt.Errorf("visitor history: %w", err)
	}

	decision := Decide(history, now, e.clock.Location(), e.windows)
	if !decision.ShouldRecord {
		e.logger.Debug("click rejected",
			zap.String("shortCode", string(link.Code)),
			zap.String("reason", decision.Reason),
		)

		return nil, nil
	}

	event.IsUniqueVisitor = decision.IsUniqueVisitor
	event.IsNewSession = decision.IsNewSession
	event.IsUniqueToday = decision.IsUniqueToday

	if err := e.events.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("record click: %w", err)
	}

	// Counters are derived from the log, never incremented in place.
	if err := e.refresher.RecomputeLink(ctx, link.Code); err != nil {
		e.logger.Error("aggregate recompute failed",
			zap.String("shortCode", string(link.Code)),
			zap.Error(err),
		)
	}

	e.publishRecorded(event)

	return event, nil
}

func (e *Engine) publishRecorded(event *ClickEvent) {
	if e.publish == nil {
		return
	}

	msg := &RecordedEvent{
		EventID:    event.ID,
		ShortCode:  string(event.ShortCode),
		OwnerID:    event.OwnerID,
		OccurredAt: event.OccurredAt,
		IsBot:      event.IsBot(),
	}

	if err := e.publish(msg); err != nil {
		e.logger.Error("failed to publish click recorded event",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
	}
}
