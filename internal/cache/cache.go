package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned when a key is absent or its entry has expired.
	ErrMiss = errors.New("cache: miss")

	// ErrUnavailable is returned when the store itself is unreachable.
	// Callers must treat it as a miss and fall through to the authoritative
	// collaborator, never as a fatal error.
	ErrUnavailable = errors.New("cache: store unavailable")
)

// Store defines the interface for a TTL key/value store holding serialized data.
type Store interface {
	// Get retrieves a value by key. Returns ErrMiss for absent or expired
	// entries and ErrUnavailable when the store cannot be reached.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under key. A Set on an existing key overwrites the
	// value and restarts the TTL from the call time.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Increment atomically increments the counter stored under key and
	// returns the new count. When the key is absent or its window has
	// expired the counter restarts at 1 with a fresh expiry of window.
	// The create-or-increment sequence is atomic per key.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// ExpireAt reports the expiry time of key. The second return value is
	// false when the key is absent or has no expiry.
	ExpireAt(ctx context.Context, key string) (time.Time, bool, error)

	// Stats returns store statistics.
	Stats() Stats
}

// Stats represents store statistics.
type Stats struct {
	Hits    uint64 // Total hits
	Misses  uint64 // Total misses
	Sets    uint64 // Total writes
	Deletes uint64 // Total explicit deletions
	Swept   uint64 // Total expired entries removed by the janitor
	Items   int64  // Current number of items (approximate for remote stores)
}
