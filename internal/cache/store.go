// Package cache provides the read-through caching layer for provider
// readings and computed assessments. Entries are kept past their logical
// expiry for a retention window so degraded requests can fall back to stale
// data instead of failing outright.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get when no entry exists for the key,
// including entries evicted after their retention window.
var ErrNotFound = errors.New("cache: entry not found")

// Envelope wraps a cached payload with its freshness metadata. An envelope
// whose ExpiresAt is in the past is stale but still servable until the
// backing store evicts it.
type Envelope struct {
	Payload   []byte    `json:"payload"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Fresh reports whether the envelope is within its logical TTL at the given
// instant.
func (e *Envelope) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store is the backend-agnostic cache interface. Implementations exist for
// an in-process map (single instance deployments) and Redis (shared across
// replicas).
type Store interface {
	// Get returns the envelope for key, fresh or stale. ErrNotFound when the
	// key does not exist or has passed its retention window.
	Get(ctx context.Context, key string) (*Envelope, error)

	// Set stores payload under key. The entry is fresh for ttl and then held
	// stale for retention before becoming eligible for eviction.
	Set(ctx context.Context, key string, payload []byte, ttl, retention time.Duration) error

	// DeletePrefix removes every entry whose key starts with prefix.
	// Returns the number of entries removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Close releases backend resources.
	Close() error
}
