// Package rollup derives the per-link and per-owner counter caches from
// the click-event log. Counters are never incremented in place: every
// update is a full recompute, so concurrent writers cannot lose updates
// and running any recompute twice yields identical results.
package rollup

import (
	"context"
	"fmt"

	"github.com/linkpulse/linkpulse/internal/clicks"
	"go.uber.org/zap"
)

// Engine recomputes aggregates from the event log.
type Engine struct {
	events     clicks.EventStore
	aggregates clicks.AggregateStore
	resolver   clicks.LinkResolver
	clock      clicks.Clock
	logger     *zap.Logger

	// BatchSize bounds how many links a full sync processes between
	// checkpoint log lines.
	BatchSize int
}

// NewEngine creates a rollup engine.
func NewEngine(
	events clicks.EventStore,
	aggregates clicks.AggregateStore,
	resolver clicks.LinkResolver,
	clock clicks.Clock,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		events:     events,
		aggregates: aggregates,
		resolver:   resolver,
		clock:      clock,
		logger:     logger,
		BatchSize:  200,
	}
}

// RecomputeLink re-derives one LinkAggregate from the log and overwrites
// the cached row. Safe to run repeatedly and concurrently: it is a pure
// read-then-overwrite of values that are a function of the log.
func (e *Engine) RecomputeLink(ctx context.Context, code clicks.Code) error {
	now := e.clock.Now()
	loc := e.clock.Location()

	agg := &clicks.LinkAggregate{
		ShortCode: code,
		UpdatedAt: now,
	}

	var err error

	if agg.Total, err = e.events.CountTotal(ctx, code); err != nil {
		return fmt.Errorf("count total: %w", err)
	}

	if agg.Unique, err = e.events.CountUnique(ctx, code); err != nil {
		return fmt.Errorf("count unique: %w", err)
	}

	if agg.Today, err = e.events.CountSince(ctx, code, clicks.StartOfDay(now, loc)); err != nil {
		return fmt.Errorf("count today: %w", err)
	}

	if agg.ThisWeek, err = e.events.CountSince(ctx, code, clicks.StartOfWeek(now, loc)); err != nil {
		return fmt.Errorf("count week: %w", err)
	}

	if agg.ThisMonth, err = e.events.CountSince(ctx, code, clicks.StartOfMonth(now, loc)); err != nil {
		return fmt.Errorf("count month: %w", err)
	}

	if agg.LastClickAt, err = e.events.LastClickAt(ctx, code); err != nil {
		return fmt.Errorf("last click: %w", err)
	}

	return e.aggregates.UpsertLink(ctx, agg)
}

// RecomputeOwner re-derives one OwnerUsage row: active link count,
// lifetime clicks across owned links, and the current-month click count.
func (e *Engine) RecomputeOwner(ctx context.Context, ownerID string) error {
	now := e.clock.Now()

	usage := &clicks.OwnerUsage{
		OwnerID:   ownerID,
		UpdatedAt: now,
	}

	var err error

	if usage.ActiveLinks, err = e.resolver.CountActiveByOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("count active links: %w", err)
	}

	if usage.Lifetime, err = e.events.CountByOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("count lifetime: %w", err)
	}

	monthStart := clicks.StartOfMonth(now, e.clock.Location())
	if usage.ThisMonth, err = e.events.CountByOwnerSince(ctx, ownerID, monthStart); err != nil {
		return fmt.Errorf("count month: %w", err)
	}

	return e.aggregates.UpsertOwner(ctx, usage)
}

// SyncAll fully recomputes every active link's aggregate. Idempotent
// and safe to run concurrently with live traffic; progress is logged
// per batch so large link counts can be followed across checkpoints.
func (e *Engine) SyncAll(ctx context.Context) error {
	links, err := e.resolver.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list links: %w", err)
	}

	var failed int

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.RecomputeLink(ctx, link.Code); err != nil {
			failed++

			e.logger.Error("link sync failed",
				zap.String("shortCode", string(link.Code)),
				zap.Error(err),
			)

			continue
		}

		if (i+1)%e.BatchSize == 0 {
			e.logger.Info("link sync checkpoint",
				zap.Int("done", i+1),
				zap.Int("total", len(links)),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("sync finished with %d of %d links failed", failed, len(links))
	}

	return nil
}

// SyncAllOwners fully recomputes every owner's usage row.
func (e *Engine) SyncAllOwners(ctx context.Context) error {
	owners, err := e.resolver.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	var failed int

	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.RecomputeOwner(ctx, ownerID); err != nil {
			failed++

			e.logger.Error("owner sync failed",
				zap.String("ownerId", ownerID),
				zap.Error(err),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("sync finished with %d of %d owners failed", failed, len(owners))
	}

	return nil
}
