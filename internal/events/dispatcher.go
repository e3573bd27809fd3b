package events

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	ErrQueueFull        = errors.New("event queue full")
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

// Dispatcher hands events to a pool of workers that deliver them to the next
// publisher, so a slow sink never holds up the caller. With one worker events
// are delivered in the order they were queued.
type Dispatcher struct {
	next Publisher
	jobs chan Event
	log  *log.Entry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with room for buffer queued events.
func NewDispatcher(next Publisher, buffer int, logger *log.Entry) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = log.WithField("component", "events")
	}
	return &Dispatcher{
		next: next,
		jobs: make(chan Event, buffer),
		log:  logger,
	}
}

// Start launches the worker goroutines. Deliveries use ctx.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for e := range d.jobs {
		if err := d.next.Publish(ctx, e); err != nil {
			d.log.WithError(err).WithFields(log.Fields{
				"worker":       id,
				"event":        e.Type,
				"aggregate_id": e.AggregateID,
			}).Warn("Failed to deliver event")
		}
	}
}

// Publish queues e without waiting for delivery. It fails when the queue is
// full or the dispatcher has been closed.
func (d *Dispatcher) Publish(_ context.Context, e Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
