package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is a process-local Store for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &windowEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.resetAt.Sub(now), nil
}
