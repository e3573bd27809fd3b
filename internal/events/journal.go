package events

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ukydev/fleet-maintenance/internal/db"
)

// JournalSink appends every event to a MongoDB journal.
type JournalSink struct {
	Journal db.JournalCollection
}

// Publish stores e as a journal entry.
func (s *JournalSink) Publish(ctx context.Context, e Event) error {
	entry, err := ToJournalEntry(e)
	if err != nil {
		return err
	}
	if err := s.Journal.InsertEvent(ctx, entry); err != nil {
		return fmt.Errorf("journal event %s: %w", e.ID, err)
	}
	return nil
}

// ToJournalEntry converts e into its stored form. The payload must encode as a
// BSON document.
func ToJournalEntry(e Event) (db.JournalEntry, error) {
	payload := bson.M{}
	if e.Payload != nil {
		raw, err := bson.Marshal(e.Payload)
		if err != nil {
			return db.JournalEntry{}, fmt.Errorf("encode payload of %s: %w", e.ID, err)
		}
		if err := bson.Unmarshal(raw, &payload); err != nil {
			return db.JournalEntry{}, fmt.Errorf("decode payload of %s: %w", e.ID, err)
		}
	}
	return db.JournalEntry{
		ID:          e.ID,
		Type:        e.Type,
		AggregateID: e.AggregateID,
		Version:     e.Version,
		Actor:       e.Actor,
		OccurredAt:  e.OccurredAt,
		Payload:     payload,
	}, nil
}
