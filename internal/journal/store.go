package journal

import (
	"context"
	"time"
)

// Store defines the interface for persisting and querying journal entries.
type Store interface {
	// Append stores e. ID and Timestamp are assigned by the store.
	Append(ctx context.Context, e Entry) (Entry, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Range returns entries within [start, end], oldest first.
	Range(ctx context.Context, start, end time.Time) ([]Entry, error)

	// Summary aggregates every entry at or after since.
	Summary(ctx context.Context, since time.Time) (Summary, error)

	// Close closes the store and releases resources.
	Close() error
}
