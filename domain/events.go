package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Event kind constants
const (
	AuctionCreated   = "V1_AUCTION_CREATED"
	AuctionCancelled = "V1_AUCTION_CANCELLED"
	Bid              = "V1_BID"
	SelectedRune     = "V1_SELECTED_RUNE"
	Claimed          = "V1_CLAIMED"
	Messaged         = "V1_MESSAGED"
	HarvestedLot     = "V1_USER_HARVESTED_LOT_EMISSIONS"
	UpdatedAlias     = "V1_UPDATED_ALIAS"
	MutedUser        = "V1_MUTED_USER"
)

// NoRune marks "no rune selected" in event payloads and participant state.
const NoRune uint8 = 0

// Event is the envelope for one upstream ledger event.
type Event struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	BlockHeight int64           `json:"block_height"`
	LogIndex    int             `json:"log_index"`
	TxHash      string          `json:"tx_hash"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
}

// AuctionCreatedEvent announces a new lot. Emission and rune support are
// read back from the ledger at projection time.
type AuctionCreatedEvent struct {
	Lot             int64  `json:"lot" validate:"gte=0"`
	Name            string `json:"name" validate:"required"`
	UnlockTimestamp int64  `json:"unlock_timestamp" validate:"gt=0"`
}

// BidEvent carries one placed bid. BidCount is the bid weight added by this
// event; Bid is the new leading bid amount on the lot.
type BidEvent struct {
	Lot       int64  `json:"lot" validate:"gte=0"`
	User      string `json:"user" validate:"required"`
	Bid       int64  `json:"bid" validate:"gte=0"`
	BidCount  int64  `json:"bid_count" validate:"gt=0"`
	PrevRune  uint8  `json:"prev_rune"`
	Rune      uint8  `json:"rune"`
	Alias     string `json:"alias"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp" validate:"gt=0"`
	NextBidBy int64  `json:"next_bid_by"`
}

// SelectedRuneEvent carries a rune selection without new bid weight.
type SelectedRuneEvent struct {
	Lot      int64  `json:"lot" validate:"gte=0"`
	User     string `json:"user" validate:"required"`
	PrevRune uint8  `json:"prev_rune"`
	Rune     uint8  `json:"rune" validate:"gt=0"`
	Alias    string `json:"alias"`
	Message  string `json:"message"`
}

// AuctionCancelledEvent marks a lot as cancelled by its owner.
type AuctionCancelledEvent struct {
	Lot int64 `json:"lot" validate:"gte=0"`
}

// ClaimedEvent records the winner collecting the lot.
type ClaimedEvent struct {
	Lot     int64  `json:"lot" validate:"gte=0"`
	User    string `json:"user" validate:"required"`
	Alias   string `json:"alias"`
	Message string `json:"message"`
}

// MessagedEvent carries a chat message scoped to a lot.
type MessagedEvent struct {
	Lot     int64  `json:"lot" validate:"gte=0"`
	User    string `json:"user" validate:"required"`
	Alias   string `json:"alias"`
	Message string `json:"message"`
}

// HarvestedLotEvent records a user collecting the emissions of one lot.
type HarvestedLotEvent struct {
	Lot           int64  `json:"lot" validate:"gte=0"`
	User          string `json:"user" validate:"required"`
	UserEmissions int64  `json:"user_emissions" validate:"gte=0"`
}

// UpdatedAliasEvent sets a user's display alias.
type UpdatedAliasEvent struct {
	User  string `json:"user" validate:"required"`
	Alias string `json:"alias"`
}

// MutedUserEvent toggles a user's mute flag.
type MutedUserEvent struct {
	User  string `json:"user" validate:"required"`
	Muted bool   `json:"muted"`
}

var validate = validator.New()

// DecodeEvent unmarshals and validates the payload of an event envelope into
// its concrete type. Unknown kinds and payloads failing validation are
// errors; the caller must treat them as fatal for the projection run.
func DecodeEvent(ev Event) (interface{}, error) {
	var payload interface{}

	switch ev.Kind {
	case AuctionCreated:
		payload = &AuctionCreatedEvent{}
	case AuctionCancelled:
		payload = &AuctionCancelledEvent{}
	case Bid:
		payload = &BidEvent{}
	case SelectedRune:
		payload = &SelectedRuneEvent{}
	case Claimed:
		payload = &ClaimedEvent{}
	case Messaged:
		payload = &MessagedEvent{}
	case HarvestedLot:
		payload = &HarvestedLotEvent{}
	case UpdatedAlias:
		payload = &UpdatedAliasEvent{}
	case MutedUser:
		payload = &MutedUserEvent{}
	default:
		return nil, fmt.Errorf("unknown event kind: %s", ev.Kind)
	}

	if err := json.Unmarshal(ev.Data, payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", ev.Kind, err)
	}

	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", ev.Kind, err)
	}

	return payload, nil
}
