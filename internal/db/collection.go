package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"
)

// JournalCollection defines the interface for event journal operations.
type JournalCollection interface {
	InsertEvent(ctx context.Context, entry JournalEntry) error
	FindEvents(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (JournalCursor, error)
}

// JournalCursor defines the interface for journal cursor operations.
type JournalCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// JournalReader is the read side used by the HTTP API.
type JournalReader interface {
	RecentEvents(ctx context.Context, aggregateID string, limit int64) ([]JournalEntry, error)
}
