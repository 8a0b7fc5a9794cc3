package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/redis/go-redis/v9"
)

// RedisCacheAggregateStore wraps a clicks.AggregateStore with Redis
// caching for reads. Writes go through to the underlying store and
// refresh the cache, so dashboard reads of hot links skip Postgres.
// Cache failures are ignored: the store is the source of the cache,
// and the cache is never the source of anything.
type RedisCacheAggregateStore struct {
	store  clicks.AggregateStore
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCacheAggregateStore creates a Redis-cached aggregate store decorator.
func NewRedisCacheAggregateStore(
	store clicks.AggregateStore, client *redis.Client, ttl time.Duration,
) *RedisCacheAggregateStore {
	return &RedisCacheAggregateStore{
		store:  store,
		client: client,
		prefix: "agg:",
		ttl:    ttl,
	}
}

// UpsertLink writes through to the underlying store and refreshes the cache.
func (r *RedisCacheAggregateStore) UpsertLink(ctx context.Context, agg *clicks.LinkAggregate) error {
	if err := r.store.UpsertLink(ctx, agg); err != nil {
		return err
	}

	r.cache(ctx, agg)

	return nil
}

// GetLink returns the cached aggregate when fresh, falling back to the
// underlying store on a miss.
func (r *RedisCacheAggregateStore) GetLink(ctx context.Context, code clicks.Code) (*clicks.LinkAggregate, error) {
	if agg, err := r.fromCache(ctx, code); err == nil {
		return agg, nil
	}

	agg, err := r.store.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cache(ctx, agg)

	return agg, nil
}

// UpsertOwner passes through; owner rows are not read on the hot path.
func (r *RedisCacheAggregateStore) UpsertOwner(ctx context.Context, usage *clicks.OwnerUsage) error {
	return r.store.UpsertOwner(ctx, usage)
}

// GetOwner passes through to the underlying store.
func (r *RedisCacheAggregateStore) GetOwner(ctx context.Context, ownerID string) (*clicks.OwnerUsage, error) {
	return r.store.GetOwner(ctx, ownerID)
}

func (r *RedisCacheAggregateStore) cache(ctx context.Context, agg *clicks.LinkAggregate) {
	payload, err := json.Marshal(agg)
	if err != nil {
		return
	}

	_ = r.client.Set(ctx, r.prefix+string(agg.ShortCode), payload, r.ttl).Err()
}

func (r *RedisCacheAggregateStore) fromCache(ctx context.Context, code clicks.Code) (*clicks.LinkAggregate, error) {
	payload, err := r.client.Get(ctx, r.prefix+string(code)).Bytes()
	if err != nil {
		return nil, err
	}

	var agg clicks.LinkAggregate
	if err := json.Unmarshal(payload, &agg); err != nil {
		return nil, err
	}

	return &agg, nil
}
