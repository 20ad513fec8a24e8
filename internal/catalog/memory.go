package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and the cache-only demo
// mode used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Product
	skus   map[string]int64
}

// NewMemoryStore creates an empty in-memory product store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		items:  make(map[int64]Product),
		skus:   make(map[string]int64),
	}
}

func (m *MemoryStore) Create(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.skus[p.SKU]; exists {
		return ErrSKUExists
	}

	p.ID = m.nextID
	m.nextID++
	m.items[p.ID] = *p
	m.skus[p.SKU] = p.ID
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.items[p.ID]
	if !ok {
		return ErrNotFound
	}
	if p.SKU != prev.SKU {
		if _, exists := m.skus[p.SKU]; exists {
			return ErrSKUExists
		}
		delete(m.skus, prev.SKU)
		m.skus[p.SKU] = p.ID
	}
	m.items[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	delete(m.skus, p.SKU)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Product, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Trending ranks active products by rating, unrated last, id as tiebreak.
// The SQL store ranks by recent order volume instead; rating is the best
// signal available without order data.
func (m *MemoryStore) Trending(ctx context.Context, limit int) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Product, 0, len(m.items))
	for _, p := range m.items {
		if p.Status == StatusActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Rating, out[j].Rating
		switch {
		case ri != nil && rj != nil && *ri != *rj:
			return *ri > *rj
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
