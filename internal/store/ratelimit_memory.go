package store

import (
	"context"
	"sync"
	"time"
)

// RateLimitMemoryStore is an in-memory sliding-window counter
// implementing ratelimit.Store. Suited to tests and single-process
// deployments; production uses the redis store.
type RateLimitMemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewRateLimitMemoryStore creates an empty in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		hits: make(map[string][]time.Time),
	}
}

// Record registers one hit for key, drops hits older than the window
// and returns how many remain.
func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	live := s.hits[key][:0]

	for _, at := range s.hits[key] {
		if at.After(cutoff) {
			live = append(live, at)
		}
	}

	live = append(live, now)
	s.hits[key] = live

	return int64(len(live)), nil
}
