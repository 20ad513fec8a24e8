package order

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store for tests and the cache-only demo mode.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Order
}

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, items: make(map[int64]Order)}
}

func (m *MemoryStore) Create(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o.ID = m.nextID
	m.nextID++
	m.items[o.ID] = *o
	return nil
}

// ListByUser returns the user's orders, newest first.
func (m *MemoryStore) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Order, 0)
	for _, o := range m.items {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
