package eventstore

import (
	"context"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/models"
)

// EventStore is the interface for the append-only raw event log.
type EventStore interface {
	// Append appends one upstream event. Appending the same (tx hash,
	// log index) twice is a no-op, so redelivered messages are safe.
	Append(ctx context.Context, event domain.Event) error

	// Unprocessed returns unapplied events in projection order
	// (block height, then log index).
	Unprocessed(ctx context.Context, limit int) ([]models.EventRecord, error)

	// MarkProcessed marks one event as applied.
	MarkProcessed(ctx context.Context, eventID string) error

	// RecordError stores a processing error note against an event.
	RecordError(ctx context.Context, eventID string, processingErr error) error

	// ResetProcessed clears every processed flag, forcing a full replay.
	ResetProcessed(ctx context.Context) error
}
