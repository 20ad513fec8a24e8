package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests. It supports failure injection
// so callers' degradation paths can be exercised.
type MockStore struct {
	mu          sync.Mutex
	data        map[string][]byte
	counts      map[string]int64
	expiries    map[string]time.Time
	unavailable bool

	// Loads counts Get calls per key, Writes counts Set calls per key.
	Loads  map[string]int
	Writes map[string]int
}

// NewMockStore creates a mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		data:     make(map[string][]byte),
		counts:   make(map[string]int64),
		expiries: make(map[string]time.Time),
		Loads:    make(map[string]int),
		Writes:   make(map[string]int),
	}
}

// SetUnavailable toggles the simulated outage.
func (m *MockStore) SetUnavailable(down bool) {
	m.mu.Lock()
	m.unavailable = down
	m.mu.Unlock()
}

func (m *MockStore) expired(key string, now time.Time) bool {
	exp, ok := m.expiries[key]
	return ok && !now.Before(exp)
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, ErrUnavailable
	}
	m.Loads[key]++
	if m.expired(key, time.Now()) {
		delete(m.data, key)
		delete(m.expiries, key)
	}
	val, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return val, nil
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	m.Writes[key]++
	m.data[key] = value
	if ttl > 0 {
		m.expiries[key] = time.Now().Add(ttl)
	} else {
		delete(m.expiries, key)
	}
	return nil
}

func (m *MockStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	for _, key := range keys {
		delete(m.data, key)
		delete(m.counts, key)
		delete(m.expiries, key)
	}
	return nil
}

func (m *MockStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			delete(m.expiries, key)
		}
	}
	for key := range m.counts {
		if strings.HasPrefix(key, prefix) {
			delete(m.counts, key)
			delete(m.expiries, key)
		}
	}
	return nil
}

func (m *MockStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return 0, ErrUnavailable
	}
	now := time.Now()
	if _, ok := m.counts[key]; !ok || m.expired(key, now) {
		m.counts[key] = 1
		m.expiries[key] = now.Add(window)
		return 1, nil
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MockStore) ExpireAt(ctx context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return time.Time{}, false, ErrUnavailable
	}
	exp, ok := m.expiries[key]
	if !ok || !time.Now().Before(exp) {
		return time.Time{}, false, nil
	}
	return exp, true, nil
}

func (m *MockStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Items: int64(len(m.data) + len(m.counts))}
}

// Has reports whether a live entry exists for key.
func (m *MockStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expired(key, time.Now()) {
		return false
	}
	_, ok := m.data[key]
	return ok
}
