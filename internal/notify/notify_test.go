package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marketfold/shopedge/internal/events"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingSender) Send(ctx context.Context, n *Notification) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, *n)
	return StatusSent
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestRelayNotifiesOnCartCleared(t *testing.T) {
	bus := events.NewBus()
	sender := &recordingSender{}
	relay := NewRelay(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, bus)

	// Give the relay a moment to subscribe before publishing.
	time.Sleep(10 * time.Millisecond)
	bus.Publish(ctx, events.TopicCart, "cart-cleared", map[string]int64{"user_id": 42})

	deadline := time.After(time.Second)
	for sender.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("notification not dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	n := sender.sent[0]
	if n.Channel != "email" || n.Recipient != "user-42" {
		t.Errorf("notification = %s/%s, want email/user-42", n.Channel, n.Recipient)
	}
}

func TestRelayNotifiesOnOrderPlaced(t *testing.T) {
	bus := events.NewBus()
	sender := &recordingSender{}
	relay := NewRelay(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, bus)

	time.Sleep(10 * time.Millisecond)
	bus.Publish(ctx, events.TopicOrder, "order-placed", map[string]int64{"order_id": 7, "user_id": 42})

	deadline := time.After(time.Second)
	for sender.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("order confirmation not dispatched")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	n := sender.sent[0]
	if n.Recipient != "user-42" || n.Subject != "Your order has been placed" {
		t.Errorf("notification = %s/%q, want user-42 order confirmation", n.Recipient, n.Subject)
	}
}

func TestRelayIgnoresRoutineEvents(t *testing.T) {
	bus := events.NewBus()
	sender := &recordingSender{}
	relay := NewRelay(sender)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, bus)

	time.Sleep(10 * time.Millisecond)
	bus.Publish(ctx, events.TopicCart, "item-added", map[string]int64{"user_id": 42})
	bus.Publish(ctx, events.TopicProduct, "product-updated", nil)

	time.Sleep(50 * time.Millisecond)
	if got := sender.count(); got != 0 {
		t.Errorf("dispatched %d notifications, want 0 for routine events", got)
	}
}
