package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a product does not exist.
	ErrNotFound = errors.New("catalog: product not found")

	// ErrSKUExists is returned when a create collides on SKU.
	ErrSKUExists = errors.New("catalog: sku already exists")
)

// Product statuses.
const (
	StatusActive       = "ACTIVE"
	StatusOutOfStock   = "OUT_OF_STOCK"
	StatusDiscontinued = "DISCONTINUED"
)

// Product is the catalog aggregate.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Category      string          `json:"category"`
	ImageURL      string          `json:"image_url,omitempty"`
	Status        string          `json:"status"`
	Rating        *float64        `json:"rating,omitempty"`
	Attributes    json.RawMessage `json:"attributes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Store is the persistent product store collaborator.
type Store interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Product, error)
	Trending(ctx context.Context, limit int) ([]Product, error)
}

// Indexer is the external search index collaborator, write side only. The
// read side lives with the search service.
type Indexer interface {
	IndexProduct(ctx context.Context, p Product) error
	Remove(ctx context.Context, id int64) error
}

// ResultInvalidator drops every cached search result page. Pages are never
// partially recomputed, so catalog changes clear them wholesale.
type ResultInvalidator interface {
	Clear()
}
