// Package events provides a fire-and-forget domain event bus. Publishers
// never await acknowledgement; slow or absent subscribers drop messages
// rather than block request handling.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/metrics"
)

// Well-known topics, matching the upstream service event streams.
const (
	TopicCart    = "cart-events"
	TopicOrder   = "order-events"
	TopicProduct = "product-events"
	TopicSearch  = "search-events"
)

// Envelope wraps a published event.
type Envelope struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher publishes domain events without awaiting delivery.
type Publisher interface {
	Publish(ctx context.Context, topic, eventType string, payload any)
}

// Bus is an in-process Publisher with subscriber fanout.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Envelope]struct{}
	log  *slog.Logger
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[chan Envelope]struct{}),
		log:  logger.WithComponent("events"),
	}
}

// Publish marshals payload and fans the envelope out to all subscribers.
// A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(ctx context.Context, topic, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.log.WarnContext(ctx, "event payload not serializable", "topic", topic, "type", eventType, "error", err)
		return
	}

	env := Envelope{
		ID:         uuid.NewString(),
		Topic:      topic,
		Type:       eventType,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}

	metrics.EventsPublished.WithLabelValues(topic).Inc()
	b.log.DebugContext(ctx, "event published", "topic", topic, "type", eventType, "event_id", env.ID)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- env:
		default:
		}
	}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// function removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Envelope, func()) {
	ch := make(chan Envelope, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
