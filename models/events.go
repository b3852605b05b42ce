package models

import (
	"time"

	"gorm.io/gorm"
)

// EventRecord is one raw upstream event in the append-only event log.
// The projection total order is (block_height, log_index); the unique index
// on (tx_hash, log_index) makes redelivered bus messages append idempotently.
type EventRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventID     string         `gorm:"uniqueIndex" json:"event_id"`
	Kind        string         `json:"kind"`
	BlockHeight int64          `gorm:"index:idx_event_order,priority:1" json:"block_height"`
	LogIndex    int            `gorm:"index:idx_event_order,priority:2;uniqueIndex:idx_event_tx,priority:2" json:"log_index"`
	TxHash      string         `gorm:"uniqueIndex:idx_event_tx,priority:1" json:"tx_hash"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        []byte         `json:"data"`
	Processed   bool           `gorm:"index" json:"processed"`
	Error       *string        `json:"error"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
