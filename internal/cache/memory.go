package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// memoryEntry wraps the stored data with its expiration time.
type memoryEntry struct {
	data      []byte
	count     int64 // counter value for Increment keys
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-process TTL store. Expired entries are treated as
// misses on read and physically removed by a background janitor sweep.
// A closed store reports ErrUnavailable, distinct from empty.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	janitor *time.Ticker
	done    chan struct{}
	closed  atomic.Bool

	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
	swept   atomic.Uint64
}

// NewMemory creates a memory store whose janitor sweeps expired entries
// every sweepInterval. A zero interval disables the sweep; expired entries
// are then only removed lazily on access.
func NewMemory(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		s.janitor = time.NewTicker(sweepInterval)
		go s.sweep()
	}
	return s
}

func (s *MemoryStore) sweep() {
	for {
		select {
		case <-s.janitor.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if e.expired(now) {
					delete(s.entries, key)
					s.swept.Add(1)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// Get retrieves a value by key, treating expired entries as misses.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && e.expired(time.Now()) {
		delete(s.entries, key)
		ok = false
	}
	var data []byte
	if ok {
		data = e.data
	}
	s.mu.Unlock()

	if !ok {
		s.misses.Add(1)
		return nil, ErrMiss
	}
	s.hits.Add(1)
	return data, nil
}

// Set stores a value, restarting the TTL from now.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	e := &memoryEntry{data: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	s.sets.Add(1)
	return nil
}

// Delete removes the given keys.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	s.mu.Lock()
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			s.deletes.Add(1)
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (s *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	s.mu.Lock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			s.deletes.Add(1)
		}
	}
	s.mu.Unlock()
	return nil
}

// Increment atomically increments the windowed counter under key. The
// counter restarts at 1 with a fresh window the instant the previous window
// has expired, never before.
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if s.closed.Load() {
		return 0, ErrUnavailable
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		s.entries[key] = &memoryEntry{count: 1, expiresAt: now.Add(window)}
		return 1, nil
	}
	e.count++
	return e.count, nil
}

// ExpireAt reports the expiry time of key.
func (s *MemoryStore) ExpireAt(ctx context.Context, key string) (time.Time, bool, error) {
	if s.closed.Load() {
		return time.Time{}, false, ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.expired(time.Now()) || e.expiresAt.IsZero() {
		return time.Time{}, false, nil
	}
	return e.expiresAt, true, nil
}

// Stats returns store statistics.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	items := int64(len(s.entries))
	s.mu.Unlock()
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
		Swept:   s.swept.Load(),
		Items:   items,
	}
}

// Close stops the janitor and marks the store unavailable.
func (s *MemoryStore) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	if s.janitor != nil {
		s.janitor.Stop()
	}
}
