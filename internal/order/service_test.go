package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/marketfold/shopedge/internal/cart"
)

type fakeCarts struct {
	cart    *cart.Cart
	cleared int
}

func (f *fakeCarts) Get(ctx context.Context, userID int64) (*cart.Cart, error) {
	return f.cart, nil
}

func (f *fakeCarts) Clear(ctx context.Context, userID int64) error {
	f.cleared++
	f.cart.Items = []cart.Item{}
	f.cart.RecomputeTotal()
	return nil
}

type recordingPublisher struct {
	topics []string
	types  []string
	last   []byte
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, eventType string, payload any) {
	p.topics = append(p.topics, topic)
	p.types = append(p.types, eventType)
	p.last, _ = json.Marshal(payload)
}

func filledCart(userID int64) *cart.Cart {
	c := &cart.Cart{
		UserID: userID,
		Items: []cart.Item{
			{ProductID: 1, Name: "Wireless Mouse", SKU: "SKU-1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: 2, Name: "Desk Lamp", SKU: "SKU-2", Quantity: 1, UnitPrice: decimal.RequireFromString("19.99")},
		},
	}
	c.RecomputeTotal()
	return c
}

func TestCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	carts := &fakeCarts{cart: filledCart(42)}
	pub := &recordingPublisher{}
	svc := NewService(NewMemoryStore(), carts, pub)
	ctx := context.Background()

	o, err := svc.Checkout(ctx, 42)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if o.ID == 0 {
		t.Fatal("expected assigned order id")
	}
	if o.Status != StatusPending {
		t.Errorf("status = %q, want PENDING", o.Status)
	}
	if !o.TotalAmount.Equal(decimal.RequireFromString("39.99")) {
		t.Errorf("total = %s, want 39.99", o.TotalAmount)
	}
	if len(o.Items) != 2 {
		t.Errorf("items = %d, want 2", len(o.Items))
	}
	if carts.cleared != 1 {
		t.Errorf("cart cleared %d times, want 1", carts.cleared)
	}

	if len(pub.topics) != 1 || pub.topics[0] != "order-events" || pub.types[0] != "order-placed" {
		t.Fatalf("published %v/%v, want order-events/order-placed", pub.topics, pub.types)
	}
	var ev struct {
		OrderID int64 `json:"order_id"`
		UserID  int64 `json:"user_id"`
	}
	json.Unmarshal(pub.last, &ev)
	if ev.OrderID != o.ID || ev.UserID != 42 {
		t.Errorf("event order/user = %d/%d, want %d/42", ev.OrderID, ev.UserID, o.ID)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	carts := &fakeCarts{cart: &cart.Cart{UserID: 42, Items: []cart.Item{}}}
	svc := NewService(NewMemoryStore(), carts, nil)

	if _, err := svc.Checkout(context.Background(), 42); err != ErrEmptyCart {
		t.Errorf("err = %v, want ErrEmptyCart", err)
	}
	if carts.cleared != 0 {
		t.Errorf("cart cleared %d times, want 0 when checkout fails", carts.cleared)
	}
}

func TestOrderItemsAreSnapshots(t *testing.T) {
	carts := &fakeCarts{cart: filledCart(42)}
	svc := NewService(NewMemoryStore(), carts, nil)

	o, err := svc.Checkout(context.Background(), 42)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items = %d, want 2 after the source cart was emptied", len(o.Items))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		carts := &fakeCarts{cart: filledCart(42)}
		if _, err := NewService(store, carts, nil).Checkout(ctx, 42); err != nil {
			t.Fatalf("Checkout #%d: %v", i+1, err)
		}
	}

	orders, err := NewService(store, &fakeCarts{cart: filledCart(42)}, nil).History(ctx, 42)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("orders = %d, want 3", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i].ID > orders[i-1].ID {
			t.Errorf("orders not newest first: %d before %d", orders[i-1].ID, orders[i].ID)
		}
	}
}
