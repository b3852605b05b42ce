package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/eventstore"
)

// BusMessage is the wire envelope published by the chain listener.
type BusMessage struct {
	EventType   string          `json:"eventType"`
	BlockHeight int64           `json:"blockHeight"`
	LogIndex    int             `json:"logIndex"`
	TxHash      string          `json:"txHash"`
	Timestamp   int64           `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
}

// MessageProcessor handles one received bus message.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error
}

// Processor appends bus messages to the raw event log. It rejects malformed
// payloads before they enter the log; a rejected message is abandoned on the
// bus rather than silently dropped.
type Processor struct {
	events eventstore.EventStore
}

// NewProcessor creates a new message processor.
func NewProcessor(events eventstore.EventStore) *Processor {
	return &Processor{events: events}
}

// ProcessMessage validates and appends one upstream event.
func (p *Processor) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	var msg BusMessage
	if err := json.Unmarshal(message.Body, &msg); err != nil {
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	if msg.TxHash == "" {
		return fmt.Errorf("message %s has no transaction hash", message.MessageID)
	}

	ev := domain.Event{
		Kind:        msg.EventType,
		BlockHeight: msg.BlockHeight,
		LogIndex:    msg.LogIndex,
		TxHash:      msg.TxHash,
		Timestamp:   time.Unix(msg.Timestamp, 0).UTC(),
		Data:        msg.Data,
	}

	// Decode up front so a malformed event never enters the log.
	if _, err := domain.DecodeEvent(ev); err != nil {
		return err
	}

	log.Info().
		Str("eventType", msg.EventType).
		Int64("blockHeight", msg.BlockHeight).
		Msg("Processing message")

	return p.events.Append(ctx, ev)
}
