package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore keeps counters in process memory. It is meant for single
// instance deployments and tests; counters are not shared between processes.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]*memoryEntry
	hits    int
}

// NewMemoryStore builds an in-process store. A nil clock uses wall time.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryStore{
		clock:   clk,
		entries: make(map[string]*memoryEntry),
	}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	s.hits++
	if s.hits%1024 == 0 {
		s.sweep(now)
	}

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &memoryEntry{expiresAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++

	return entry.count, entry.expiresAt.Sub(now), nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
