package eventstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/models"
)

// GormEventStore implements EventStore using GORM.
type GormEventStore struct {
	db *gorm.DB
}

// NewGormEventStore creates a new GORM event store.
func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// Append appends one upstream event to the log. The conflict clause on
// (tx_hash, log_index) drops exact redeliveries instead of failing.
func (s *GormEventStore) Append(ctx context.Context, event domain.Event) error {
	record := models.EventRecord{
		EventID:     uuid.New().String(),
		Kind:        event.Kind,
		BlockHeight: event.BlockHeight,
		LogIndex:    event.LogIndex,
		TxHash:      event.TxHash,
		Timestamp:   event.Timestamp,
		Data:        event.Data,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
			DoNothing: true,
		}).
		Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to append event: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		log.Debug().
			Str("txHash", event.TxHash).
			Int("logIndex", event.LogIndex).
			Msg("Duplicate event dropped")
		return nil
	}

	log.Info().
		Str("kind", event.Kind).
		Int64("blockHeight", event.BlockHeight).
		Str("txHash", event.TxHash).
		Msg("Event appended")
	return nil
}

// Unprocessed returns unapplied events in projection order.
func (s *GormEventStore) Unprocessed(ctx context.Context, limit int) ([]models.EventRecord, error) {
	var records []models.EventRecord
	if err := s.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("block_height ASC, log_index ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load unprocessed events: %w", err)
	}
	return records, nil
}

// MarkProcessed marks one event as applied.
func (s *GormEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	if err := s.db.WithContext(ctx).
		Model(&models.EventRecord{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed": true,
			"error":     nil,
		}).Error; err != nil {
		return fmt.Errorf("failed to mark event %s as processed: %w", eventID, err)
	}
	return nil
}

// RecordError stores a processing error note against an event.
func (s *GormEventStore) RecordError(ctx context.Context, eventID string, processingErr error) error {
	errMsg := processingErr.Error()
	if err := s.db.WithContext(ctx).
		Model(&models.EventRecord{}).
		Where("event_id = ?", eventID).
		Update("error", &errMsg).Error; err != nil {
		return fmt.Errorf("failed to record error for event %s: %w", eventID, err)
	}
	return nil
}

// ResetProcessed clears every processed flag, forcing a full replay.
func (s *GormEventStore) ResetProcessed(ctx context.Context) error {
	if err := s.db.WithContext(ctx).
		Model(&models.EventRecord{}).
		Where("processed = ?", true).
		Updates(map[string]interface{}{
			"processed": false,
			"error":     nil,
		}).Error; err != nil {
		return fmt.Errorf("failed to reset processed flags: %w", err)
	}
	return nil
}
