// Package events carries committed store changes to outside listeners.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types published by the fleet store.
const (
	JobCardRecorded      = "jobcard.recorded"
	JobCardStatusChanged = "jobcard.status_changed"
	StockAdjusted        = "stock.adjusted"
	PurchaseRecorded     = "purchase.recorded"
	ScheduleProjected    = "schedule.projected"
	PendingWorkClosed    = "pendingwork.closed"
	PendingWorkUpdated   = "pendingwork.updated"
	DriverReassigned     = "driver.reassigned"
	EntityAdded          = "entity.added"
)

// Event is a change that has been committed to the store.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	Version     uint64    `json:"version"`
	Actor       string    `json:"actor,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}

// New creates an event with a fresh id.
func New(eventType, aggregateID string, payload any, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  at,
		Payload:     payload,
	}
}

// Publisher delivers committed events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

// Publish delivers e to all publishers even if some fail.
func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
