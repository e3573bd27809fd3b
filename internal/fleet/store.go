// Package fleet keeps vehicles, inventory, service history, schedules and
// pending work consistent as maintenance is recorded.
package fleet

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/fleet-maintenance/internal/events"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// DocumentTracker reports compliance documents and their status.
type DocumentTracker interface {
	Expiring(now time.Time) []models.DocumentExpiry
	For(ownerKind, ownerID string, now time.Time) []models.DocumentExpiry
}

// Command is one atomic change to the store.
type Command interface {
	Name() string
	Apply(tx *Tx) error
}

// Tx is the working copy a command mutates. It is discarded if Apply fails.
type Tx struct {
	*Snapshot
	now    time.Time
	newID  func() string
	policy Policy
	actor  string
	events []events.Event
}

// Now is the commit timestamp shared by every change in the command.
func (tx *Tx) Now() time.Time { return tx.now }

// NewID returns a fresh entity id.
func (tx *Tx) NewID() string { return tx.newID() }

// Policy returns the store's business rules.
func (tx *Tx) Policy() Policy { return tx.policy }

// Emit queues an event to publish once the command commits.
func (tx *Tx) Emit(eventType, aggregateID string, payload any) {
	e := events.New(eventType, aggregateID, payload, tx.now)
	e.Actor = tx.actor
	tx.events = append(tx.events, e)
}

// Store is the single authoritative copy of fleet state. Writers are serialized
// by mu; readers take the current snapshot without locking.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]

	policy    Policy
	clock     func() time.Time
	newID     func() string
	documents DocumentTracker
	publisher events.Publisher
	log       *log.Entry
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets the business rules.
func WithPolicy(p Policy) Option { return func(s *Store) { s.policy = p } }

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option { return func(s *Store) { s.clock = clock } }

// WithIDGenerator replaces the ObjectID based id generator.
func WithIDGenerator(gen func() string) Option { return func(s *Store) { s.newID = gen } }

// WithDocuments sets the compliance document source used for notifications.
func WithDocuments(d DocumentTracker) Option { return func(s *Store) { s.documents = d } }

// WithPublisher sets where committed events go.
func WithPublisher(p events.Publisher) Option { return func(s *Store) { s.publisher = p } }

// WithLogger sets the logger.
func WithLogger(l *log.Entry) Option { return func(s *Store) { s.log = l } }

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		policy:    DefaultPolicy(),
		clock:     time.Now,
		newID:     func() string { return primitive.NewObjectID().Hex() },
		publisher: events.Nop{},
		log:       log.WithField("component", "fleet"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&Snapshot{})
	return s
}

// Snapshot returns the current state. Callers must treat it as read-only.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Version returns the number of commits applied since the last Load.
func (s *Store) Version() uint64 {
	return s.current.Load().Version
}

// Policy returns the store's business rules.
func (s *Store) Policy() Policy {
	return s.policy
}

// Load replaces the entire state, e.g. from seed fixtures.
func (s *Store) Load(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := snap.clone()
	next.Version = 0
	s.current.Store(next)
	s.log.WithFields(log.Fields{
		"vehicles":  len(next.Vehicles),
		"inventory": len(next.Inventory),
		"schedules": len(next.Schedules),
	}).Info("Fleet state loaded")
}

type actorKey struct{}

// WithActor attaches an audit actor to ctx. Commands executed with ctx record it
// on their events.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the audit actor stored in ctx.
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// Execute applies cmd atomically. Either every change the command makes is
// committed or, on error, none are. Events are published after the commit.
func (s *Store) Execute(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	base := s.current.Load()
	tx := &Tx{
		Snapshot: base.clone(),
		now:      s.clock(),
		newID:    s.newID,
		policy:   s.policy,
		actor:    ActorFrom(ctx),
	}
	if err := cmd.Apply(tx); err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("command", cmd.Name()).Warn("Command rejected")
		return err
	}
	tx.Snapshot.Version = base.Version + 1
	s.current.Store(tx.Snapshot)
	s.mu.Unlock()

	s.log.WithFields(log.Fields{
		"command": cmd.Name(),
		"version": tx.Snapshot.Version,
		"events":  len(tx.events),
	}).Info("Command committed")

	for _, e := range tx.events {
		e.Version = tx.Snapshot.Version
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.log.WithError(err).WithFields(log.Fields{
				"event":        e.Type,
				"aggregate_id": e.AggregateID,
			}).Warn("Failed to publish event")
		}
	}
	return nil
}
