package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local sliding window. It is the default when Redis
// is not configured and the fallback when Redis fails.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time), now: time.Now}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit Limit) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hits := prune(s.windows[key], now.Add(-limit.Window))
	if len(hits) >= limit.Requests {
		s.windows[key] = hits
		return Result{Limit: limit.Requests, ResetAt: hits[0].Add(limit.Window)}, nil
	}
	hits = append(hits, now)
	s.windows[key] = hits
	return Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - len(hits),
		ResetAt:   hits[0].Add(limit.Window),
	}, nil
}

// prune drops timestamps at or before cutoff. hits is in ascending order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
