package projections

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/auctionhouse/services/indexer/config"
	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/eventstore"
	"example.com/auctionhouse/services/indexer/models"
	"example.com/auctionhouse/services/indexer/store"
)

// EventProcessor drains the raw event log into the derived entities.
// Events are applied strictly sequentially in (block height, log index)
// order. Each event is applied and marked processed inside one database
// transaction; a failure stops the batch and the same event is retried on
// the next tick, so the derived state never reflects a partial event.
type EventProcessor struct {
	db                 *gorm.DB
	projector          *Projector
	search             *SearchIndexer
	batchSize          int
	processingInterval time.Duration
	running            bool
	mutex              sync.Mutex
	stopChan           chan struct{}
}

// NewEventProcessor creates a new event processor.
func NewEventProcessor(db *gorm.DB, projector *Projector, search *SearchIndexer, cfg config.ProjectorConfig) *EventProcessor {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	interval := cfg.ProcessingInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &EventProcessor{
		db:                 db,
		projector:          projector,
		search:             search,
		batchSize:          batchSize,
		processingInterval: interval,
		stopChan:           make(chan struct{}),
	}
}

// Start starts the event processor.
func (p *EventProcessor) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return
	}

	p.running = true
	go p.processEvents()
}

// Stop stops the event processor.
func (p *EventProcessor) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.running {
		return
	}

	p.running = false
	p.stopChan <- struct{}{}
}

func (p *EventProcessor) processEvents() {
	ticker := time.NewTicker(p.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.ProcessBatch(context.Background()); err != nil {
				log.Error().Err(err).Msg("Failed to process event batch")
			}
		case <-p.stopChan:
			return
		}
	}
}

// ProcessBatch applies one batch of pending events and reports how many were
// applied. The first failing event halts the batch.
func (p *EventProcessor) ProcessBatch(ctx context.Context) (int, error) {
	events := eventstore.NewGormEventStore(p.db)

	records, err := events.Unprocessed(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	log.Info().Int("count", len(records)).Msg("Processing events")

	processed := 0
	for _, record := range records {
		if err := p.processOne(ctx, record); err != nil {
			log.Error().Err(err).
				Str("event_id", record.EventID).
				Str("kind", record.Kind).
				Msg("Failed to process event, halting batch")

			if noteErr := events.RecordError(ctx, record.EventID, err); noteErr != nil {
				log.Error().Err(noteErr).Str("event_id", record.EventID).Msg("Failed to record event error")
			}
			// Never skip an event: the same one is retried next tick.
			return processed, err
		}
		processed++
	}

	return processed, nil
}

// ProcessAll drains the event log to completion. Used by full replays.
func (p *EventProcessor) ProcessAll(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := p.ProcessBatch(ctx)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
}

func (p *EventProcessor) processOne(ctx context.Context, record models.EventRecord) error {
	ev := domain.Event{
		ID:          record.EventID,
		Kind:        record.Kind,
		BlockHeight: record.BlockHeight,
		LogIndex:    record.LogIndex,
		TxHash:      record.TxHash,
		Timestamp:   record.Timestamp,
		Data:        record.Data,
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		st := store.NewGormStore(tx)
		if err := p.projector.Apply(ctx, st, ev); err != nil {
			return err
		}
		return eventstore.NewGormEventStore(tx).MarkProcessed(ctx, record.EventID)
	})
	if err != nil {
		return err
	}

	// The search mirror is best effort: derived state is already durable and
	// indexing by document id is safe to repeat.
	if p.search != nil {
		if err := p.search.IndexEvent(ctx, record); err != nil {
			log.Warn().Err(err).Str("event_id", record.EventID).Msg("Failed to index event in Elasticsearch")
		}
		p.mirrorAuction(ctx, record)
	}

	return nil
}

func (p *EventProcessor) mirrorAuction(ctx context.Context, record models.EventRecord) {
	lot, ok := lotOfRecord(record)
	if !ok {
		return
	}

	auction, err := store.NewGormStore(p.db).Auction(ctx, lot)
	if err != nil {
		log.Warn().Err(err).Int64("lot", lot).Msg("Failed to load auction for search mirror")
		return
	}
	if err := p.search.IndexAuction(ctx, auction); err != nil {
		log.Warn().Err(err).Int64("lot", lot).Msg("Failed to index auction in Elasticsearch")
	}
}

// lotOfRecord pulls the lot id out of a raw payload, when the kind has one.
func lotOfRecord(record models.EventRecord) (int64, bool) {
	var payload struct {
		Lot *int64 `json:"lot"`
	}
	if err := json.Unmarshal(record.Data, &payload); err != nil || payload.Lot == nil {
		return 0, false
	}
	return *payload.Lot, true
}
