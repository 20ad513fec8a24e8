package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketfold/shopedge/internal/cache"
	"github.com/marketfold/shopedge/internal/catalog"
	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/events"
)

type productSource struct {
	products map[int64]*catalog.Product
}

func (p *productSource) Get(ctx context.Context, id int64) (*catalog.Product, error) {
	prod, ok := p.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return prod, nil
}

func cartConfig() *config.Config {
	return &config.Config{
		CartTTL:      time.Hour,
		CartItemsTTL: 30 * time.Minute,
		CartTotalTTL: time.Hour,
	}
}

type fixture struct {
	svc  *Service
	mock *cache.MockStore
	bus  *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	active := func(id int64, name, sku, price string) *catalog.Product {
		return &catalog.Product{
			ID:     id,
			Name:   name,
			SKU:    sku,
			Price:  decimal.RequireFromString(price),
			Status: catalog.StatusActive,
		}
	}
	products := &productSource{products: map[int64]*catalog.Product{
		7: active(7, "Wireless Mouse", "SKU-7", "10.00"),
		8: active(8, "USB Hub", "SKU-8", "25.50"),
		9: {ID: 9, Name: "Retired Gadget", SKU: "SKU-9", Price: decimal.RequireFromString("5.00"), Status: catalog.StatusDiscontinued},
	}}

	f := &fixture{
		mock: cache.NewMockStore(),
		bus:  events.NewBus(),
	}
	f.svc = NewService(NewMemoryStore(), cache.NewCoordinator(f.mock), products, f.bus, cartConfig())
	return f
}

func TestGetCreatesEmptyCart(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.UserID != 42 || len(c.Items) != 0 {
		t.Errorf("got user=%d items=%d, want empty cart for user 42", c.UserID, len(c.Items))
	}
	if !c.TotalAmount.IsZero() {
		t.Errorf("empty cart total = %s, want 0", c.TotalAmount)
	}
}

func TestAddItemLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.AddItem(ctx, 42, 7, 2)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 2 {
		t.Fatalf("after add: items=%d qty=%d, want 1 line of 2", len(c.Items), c.Items[0].Quantity)
	}
	if !c.TotalAmount.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("total = %s, want 20.00", c.TotalAmount)
	}

	// Adding the same product merges quantities instead of duplicating lines.
	c, err = f.svc.AddItem(ctx, 42, 7, 1)
	if err != nil {
		t.Fatalf("second AddItem: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 3 {
		t.Errorf("after merge: items=%d qty=%d, want 1 line of 3", len(c.Items), c.Items[0].Quantity)
	}
	if !c.TotalAmount.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("total = %s, want 30.00", c.TotalAmount)
	}

	c, err = f.svc.RemoveItem(ctx, 42, 7)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(c.Items) != 0 || !c.TotalAmount.IsZero() {
		t.Errorf("after remove: items=%d total=%s, want empty/0", len(c.Items), c.TotalAmount)
	}

	// The cached view always matches what a fresh load would return.
	cached, err := f.svc.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cached.Items) != 0 || !cached.TotalAmount.IsZero() {
		t.Errorf("cached cart: items=%d total=%s, want empty/0", len(cached.Items), cached.TotalAmount)
	}
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddItem(ctx, 1, 7, 0); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("zero quantity: err = %v, want ErrInvalidItem", err)
	}
	if _, err := f.svc.AddItem(ctx, 1, 9999, 1); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("unknown product: err = %v, want catalog.ErrNotFound", err)
	}
	if _, err := f.svc.AddItem(ctx, 1, 9, 1); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("discontinued product: err = %v, want ErrInvalidItem", err)
	}
}

func TestUpdateItemQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddItem(ctx, 5, 7, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	c, err := f.svc.UpdateItemQuantity(ctx, 5, 7, 6)
	if err != nil {
		t.Fatalf("UpdateItemQuantity: %v", err)
	}
	if c.Items[0].Quantity != 6 || !c.TotalAmount.Equal(decimal.RequireFromString("60.00")) {
		t.Errorf("qty=%d total=%s, want 6/60.00", c.Items[0].Quantity, c.TotalAmount)
	}

	// Zero quantity removes the line.
	c, err = f.svc.UpdateItemQuantity(ctx, 5, 7, 0)
	if err != nil {
		t.Fatalf("UpdateItemQuantity to zero: %v", err)
	}
	if len(c.Items) != 0 {
		t.Errorf("items = %d, want 0 after zero-quantity update", len(c.Items))
	}

	if _, err := f.svc.UpdateItemQuantity(ctx, 5, 7, 1); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("missing line: err = %v, want ErrItemNotFound", err)
	}
}

func TestRemoveMissingItem(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.RemoveItem(context.Background(), 5, 7); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
}

func TestMutationRefreshesAllCacheTiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Warm every tier, then mutate.
	if _, err := f.svc.Get(ctx, 42); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := f.svc.Items(ctx, 42); err != nil {
		t.Fatalf("Items: %v", err)
	}
	if _, err := f.svc.Total(ctx, 42); err != nil {
		t.Fatalf("Total: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, 42, 8, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	// All three tiers now serve the committed state without reloading.
	items, err := f.svc.Items(ctx, 42)
	if err != nil {
		t.Fatalf("Items after add: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != 8 {
		t.Errorf("items = %+v, want the added line", items)
	}

	total, err := f.svc.Total(ctx, 42)
	if err != nil {
		t.Fatalf("Total after add: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("51.00")) {
		t.Errorf("total = %s, want 51.00", total)
	}
}

func TestClearDropsCachedViewsTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, cancel := f.bus.Subscribe()
	defer cancel()

	if _, err := f.svc.AddItem(ctx, 42, 7, 3); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := f.svc.Clear(ctx, 42); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	for _, key := range []string{cache.CartKey(42), cache.CartItemsKey(42), cache.CartTotalKey(42)} {
		if f.mock.Has(key) {
			t.Errorf("cache entry %q survived Clear", key)
		}
	}

	c, err := f.svc.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get after Clear: %v", err)
	}
	if len(c.Items) != 0 || !c.TotalAmount.IsZero() {
		t.Errorf("cart after Clear: items=%d total=%s, want empty/0", len(c.Items), c.TotalAmount)
	}

	var sawCleared bool
	for len(ch) > 0 {
		if env := <-ch; env.Type == "cart-cleared" {
			sawCleared = true
		}
	}
	if !sawCleared {
		t.Error("expected cart-cleared event")
	}
}

func TestCartSurvivesCacheOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddItem(ctx, 42, 7, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	f.mock.SetUnavailable(true)

	c, err := f.svc.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get with cache down: %v", err)
	}
	if len(c.Items) != 1 {
		t.Errorf("items = %d, want 1 from the authoritative store", len(c.Items))
	}

	if _, err := f.svc.AddItem(ctx, 42, 8, 1); err != nil {
		t.Fatalf("AddItem with cache down: %v", err)
	}

	f.mock.SetUnavailable(false)
	c, err = f.svc.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
	if len(c.Items) != 2 {
		t.Errorf("items = %d, want 2 after recovery", len(c.Items))
	}
}
