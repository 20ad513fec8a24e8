package cart

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and the cache-only demo mode.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[int64]Cart
}

// NewMemoryStore creates an empty in-memory cart store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[int64]Cart)}
}

func (m *MemoryStore) GetByUserID(ctx context.Context, userID int64) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[userID]
	if !ok {
		return &Cart{UserID: userID, Items: []Item{}}, nil
	}
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return &c, nil
}

func (m *MemoryStore) Save(ctx context.Context, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *c
	stored.Items = make([]Item, len(c.Items))
	copy(stored.Items, c.Items)
	m.carts[c.UserID] = stored
	return nil
}
