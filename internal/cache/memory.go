package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"riskprofile/internal/types"
)

// sweepEvery bounds how often a write triggers a full eviction sweep.
const sweepEvery = 256

// MemoryStore is a mutex-guarded in-process Store for single-replica
// deployments and tests. Expired entries are evicted lazily on read and by a
// periodic sweep piggybacked on writes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   types.Clock
	writes  int
}

type memoryEntry struct {
	envelope Envelope
	evictAt  time.Time
}

// NewMemoryStore creates an empty in-process store. A nil clock defaults to
// the real clock.
func NewMemoryStore(clock types.Clock) *MemoryStore {
	if clock == nil {
		clock = &types.RealClock{}
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}

	if !s.clock.Now().Before(entry.evictAt) {
		delete(s.entries, key)
		return nil, ErrNotFound
	}

	env := entry.envelope
	return &env, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl, retention time.Duration) error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		envelope: Envelope{
			Payload:   payload,
			StoredAt:  now,
			ExpiresAt: now.Add(ttl),
		},
		evictAt: now.Add(ttl + retention),
	}

	s.writes++
	if s.writes%sweepEvery == 0 {
		s.sweepLocked(now)
	}

	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}

// Len reports the number of live entries. Used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, entry := range s.entries {
		if !now.Before(entry.evictAt) {
			delete(s.entries, key)
		}
	}
}
