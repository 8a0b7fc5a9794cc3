package rollup

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/messaging"
	"go.uber.org/zap"
)

// NewConsumer builds a worker-side consumer for click.recorded messages.
// It re-derives the link aggregate and the owner's usage for every
// recorded click, which both absorbs online-recompute failures from the
// ingest path (self-healing) and keeps OwnerUsage off the hot path.
// Handler errors Nack the message so the stream redelivers it.
func NewConsumer(
	subscriber message.Subscriber,
	engine *Engine,
	logger *zap.Logger,
) *messaging.Consumer[clicks.RecordedEvent] {
	handler := func(ctx context.Context, event *clicks.RecordedEvent) error {
		// Bot clicks never move counters, so there is nothing to re-derive.
		if event.IsBot {
			return nil
		}

		if err := engine.RecomputeLink(ctx, clicks.Code(event.ShortCode)); err != nil {
			return fmt.Errorf("recompute link %s: %w", event.ShortCode, err)
		}

		if event.OwnerID != "" {
			if err := engine.RecomputeOwner(ctx, event.OwnerID); err != nil {
				return fmt.Errorf("recompute owner %s: %w", event.OwnerID, err)
			}
		}

		return nil
	}

	return messaging.NewConsumer(subscriber, clicks.TopicClickRecorded, handler, logger)
}
