package search

import (
	"context"
	"errors"
	"sync"

	"github.com/marketfold/shopedge/internal/catalog"
)

// ErrIndexUnavailable is returned by an index that cannot serve queries.
var ErrIndexUnavailable = errors.New("search: index unavailable")

// Index is the query side of the search index.
type Index interface {
	Query(ctx context.Context, q Query) (ResultPage, error)
}

// MemoryIndex is an in-process index over its own product snapshot. It
// stands in for the external index cluster and doubles as the write-side
// catalog.Indexer. Fail() simulates an index outage so breaker and fallback
// paths can be exercised.
type MemoryIndex struct {
	mu       sync.RWMutex
	products map[int64]catalog.Product
	engine   Engine
	down     bool
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{products: make(map[int64]catalog.Product)}
}

// IndexProduct adds or replaces a product document.
func (m *MemoryIndex) IndexProduct(ctx context.Context, p catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrIndexUnavailable
	}
	m.products[p.ID] = p
	return nil
}

// Remove drops a product document. Removing an unknown id is a no-op.
func (m *MemoryIndex) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrIndexUnavailable
	}
	delete(m.products, id)
	return nil
}

// Query evaluates q against the indexed documents.
func (m *MemoryIndex) Query(ctx context.Context, q Query) (ResultPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.down {
		return ResultPage{}, ErrIndexUnavailable
	}
	docs := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		docs = append(docs, p)
	}
	return m.engine.Run(docs, q), nil
}

// Fail toggles the simulated outage.
func (m *MemoryIndex) Fail(down bool) {
	m.mu.Lock()
	m.down = down
	m.mu.Unlock()
}
