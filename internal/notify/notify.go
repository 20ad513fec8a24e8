// Package notify turns domain events into outbound notifications through
// pluggable channels that send and report a delivery status.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marketfold/shopedge/internal/events"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/metrics"
)

// Status is the delivery outcome of a notification.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Notification is a single outbound message.
type Notification struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Sender delivers a notification over one channel and reports the outcome.
type Sender interface {
	Send(ctx context.Context, n *Notification) Status
}

// LogSender records deliveries to the structured log. It stands in for the
// email and SMS gateways of the upstream notification service.
type LogSender struct {
	Channel string
	log     *slog.Logger
}

// NewLogSender creates a sender for the named channel.
func NewLogSender(channel string) *LogSender {
	return &LogSender{Channel: channel, log: logger.WithComponent("notify")}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, n *Notification) Status {
	s.log.InfoContext(ctx, "notification dispatched",
		"channel", s.Channel, "recipient", n.Recipient, "subject", n.Subject)
	return StatusSent
}

// Relay consumes bus events and dispatches notifications for the ones that
// warrant user contact.
type Relay struct {
	sender Sender
	log    *slog.Logger
}

// NewRelay creates a relay over the given sender.
func NewRelay(sender Sender) *Relay {
	return &Relay{sender: sender, log: logger.WithComponent("notify")}
}

// Run consumes envelopes until ctx is done. Call in its own goroutine.
func (r *Relay) Run(ctx context.Context, bus *events.Bus) {
	ch, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			if n := r.build(env); n != nil {
				status := r.sender.Send(ctx, n)
				n.Status = status
				metrics.NotificationsSent.WithLabelValues(n.Channel, string(status)).Inc()
			}
		}
	}
}

// build maps an event to a notification, or nil when the event needs none.
func (r *Relay) build(env events.Envelope) *Notification {
	var subject string
	switch env.Type {
	case "order-placed":
		subject = "Your order has been placed"
	case "cart-cleared":
		subject = "Your cart was emptied"
	case "product-deleted":
		subject = "A product in your cart is no longer available"
	default:
		return nil
	}

	var payload struct {
		UserID int64 `json:"user_id"`
	}
	_ = json.Unmarshal(env.Payload, &payload)

	return &Notification{
		ID:        uuid.NewString(),
		Channel:   "email",
		Recipient: recipientFor(payload.UserID),
		Subject:   subject,
		Body:      string(env.Payload),
		CreatedAt: time.Now().UTC(),
	}
}

// recipientFor resolves a contact address for a user. The user service owns
// real contact data; this placeholder keeps delivery routable in dev.
func recipientFor(userID int64) string {
	if userID <= 0 {
		return "unknown"
	}
	return "user-" + strconv.FormatInt(userID, 10)
}
