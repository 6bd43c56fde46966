// Package events publishes domain notifications after a unit of work commits.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Routing keys on the topic exchange.
const (
	OrderCreated         = "order.created"
	OrderDeleted         = "order.deleted"
	OrderStatusChanged   = "order.status_changed"
	PaymentCreated       = "payment.created"
	PaymentStatusChanged = "payment.status_changed"
	InvoiceStatusChanged = "invoice.status_changed"
	StockLow             = "stock.low"
)

// Publisher delivers a payload under a routing key. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Envelope is the JSON body placed on the wire.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func newEnvelope(routingKey string, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Logged wraps a Publisher and logs delivery failures instead of returning
// them: by the time an event is published its transaction has committed.
type Logged struct {
	next   Publisher
	logger *logrus.Logger
}

func NewLogged(next Publisher, logger *logrus.Logger) *Logged {
	return &Logged{next: next, logger: logger}
}

func (l *Logged) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := l.next.Publish(ctx, routingKey, payload); err != nil {
		l.logger.WithFields(logrus.Fields{
			"module":      "events",
			"routing_key": routingKey,
		}).WithError(err).Warn("event publish failed")
	}
	return nil
}

// Recorder keeps published events in memory. Tests use it to assert on side effects.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, newEnvelope(routingKey, payload))
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// Keys returns the routing keys recorded so far, in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.events))
	for i, e := range r.events {
		keys[i] = e.Type
	}
	return keys
}
