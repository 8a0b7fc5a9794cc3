package messaging

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable is a long-lived component with an explicit start and stop.
// Consumers and the maintenance scheduler both satisfy it.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup owns a set of Runnables and the subscriber they share,
// starting and stopping them as one unit.
type ConsumerGroup struct {
	members    []Runnable
	subscriber message.Subscriber
	logger     *zap.Logger
}

// NewConsumerGroup creates an empty group around a shared subscriber.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers a member. Not safe to call after Start.
func (g *ConsumerGroup) Add(member Runnable) {
	g.members = append(g.members, member)
}

// Start starts every member in order. If one fails, the already started
// members are shut down again before the error is returned.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, member := range g.members {
		if err := member.Start(ctx); err != nil {
			g.stop(g.members[:i])

			return fmt.Errorf("start member %d: %w", i, err)
		}
	}

	g.logger.Info("consumer group started", zap.Int("members", len(g.members)))

	return nil
}

// Shutdown stops every member, then closes the shared subscriber. The
// first error wins; the remaining members are still stopped.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group")

	firstErr := g.stop(g.members)

	if err := g.subscriber.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

func (g *ConsumerGroup) stop(members []Runnable) error {
	var firstErr error

	for i := len(members) - 1; i >= 0; i-- {
		if err := members[i].Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
