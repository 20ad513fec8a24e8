// Package cart owns the shopping cart aggregate and its three cache tiers:
// the cart itself, its line items, and its precomputed total.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrItemNotFound is returned when the cart holds no line for a product.
	ErrItemNotFound = errors.New("cart: item not found")

	// ErrInvalidItem is returned when a line item fails validation.
	ErrInvalidItem = errors.New("cart: invalid item")
)

// Item is one cart line. UnitPrice is captured at add time so later catalog
// price changes do not silently reprice a cart.
type Item struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is one user's cart. TotalAmount is always the sum of the line totals;
// every mutation recomputes it before the cart is persisted.
type Cart struct {
	UserID      int64           `json:"user_id"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RecomputeTotal resets TotalAmount from the line items.
func (c *Cart) RecomputeTotal() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	c.TotalAmount = total
}

// find returns the index of the line for productID, or -1.
func (c *Cart) find(productID int64) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Store is the persistent cart store. GetByUserID returns an empty cart for
// users who never had one; carts are created implicitly.
type Store interface {
	GetByUserID(ctx context.Context, userID int64) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}
