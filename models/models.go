package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// LotList is an ordered list of lot keys stored as a JSON column.
// Ordering is preserved across load/save cycles.
type LotList []string

// Value implements driver.Valuer.
func (l LotList) Value() (driver.Value, error) {
	if l == nil {
		l = LotList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *LotList) Scan(value interface{}) error {
	if value == nil {
		*l = LotList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type for LotList: %T", value)
	}
}

// Remove returns a copy of the list with exactly one occurrence of lot
// removed, preserving the order of the remaining entries.
func (l LotList) Remove(lot string) LotList {
	out := make(LotList, 0, len(l))
	removed := false
	for _, entry := range l {
		if !removed && entry == lot {
			removed = true
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Auction represents a single auction lot in the database. It is created
// once by the AUCTION_CREATED event and never deleted. The Sequence counter
// increases by exactly one for every event narrated in the auction log.
type Auction struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Lot             string         `gorm:"uniqueIndex" json:"lot"`
	Name            string         `json:"name"`
	UnlockTimestamp time.Time      `json:"unlock_timestamp"`
	HasEmissions    bool           `json:"has_emissions"`
	HasRunes        bool           `json:"has_runes"`
	Cancelled       bool           `json:"cancelled"`
	Finalized       bool           `json:"finalized"`
	Sequence        int64          `json:"sequence"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// AuctionBidData holds the per-lot bid aggregates mirrored from upstream.
type AuctionBidData struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Lot              string         `gorm:"uniqueIndex" json:"lot"`
	Bids             int64          `json:"bids"`
	Bid              int64          `json:"bid"`
	BidUser          string         `json:"bid_user"`
	BidTimestamp     time.Time      `json:"bid_timestamp"`
	NextBidBy        time.Time      `json:"next_bid_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// AuctionParticipant tracks one user's position within one auction,
// keyed by "lot_user". Created lazily on first interaction.
type AuctionParticipant struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Key              string         `gorm:"uniqueIndex" json:"key"`
	Lot              string         `gorm:"index" json:"lot"`
	Address          string         `gorm:"index" json:"address"`
	Bids             int64          `json:"bids"`
	LastBidTimestamp time.Time      `json:"last_bid_timestamp"`
	Rune             uint8          `json:"rune"`
	HasBid           bool           `json:"has_bid"`
	Claimed          bool           `json:"claimed"`
	Harvested        bool           `json:"harvested"`
	Muted            bool           `json:"muted"`
	Alias            string         `json:"alias"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// AuctionRune holds the bid weight currently attributed to one rune within
// one auction, keyed by "lot_rune". The sum over a lot's runes always equals
// the lot's AuctionBidData.Bids.
type AuctionRune struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Key       string         `gorm:"uniqueIndex" json:"key"`
	Lot       string         `gorm:"index" json:"lot"`
	Rune      uint8          `json:"rune"`
	Bids      int64          `json:"bids"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// User is the global identity keyed by wallet address.
// The alias is cleared while the user is muted and is not restored on unmute.
type User struct {
	ID                        uint           `gorm:"primaryKey" json:"id"`
	Address                   string         `gorm:"uniqueIndex" json:"address"`
	Alias                     string         `json:"alias"`
	Muted                     bool           `json:"muted"`
	InteractedAuctions        LotList        `gorm:"type:jsonb" json:"interacted_auctions"`
	HarvestableAuctions       LotList        `gorm:"type:jsonb" json:"harvestable_auctions"`
	TotalBidsCount            int64          `json:"total_bids_count"`
	TotalAuctionsParticipated int            `json:"total_auctions_participated"`
	TotalAuctionsWon          int64          `json:"total_auctions_won"`
	TotalEmissionsHarvested   int64          `json:"total_emissions_harvested"`
	TotalEmissionsBurned      int64          `json:"total_emissions_burned"`
	CreatedAt                 time.Time      `json:"created_at"`
	UpdatedAt                 time.Time      `json:"updated_at"`
	DeletedAt                 gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// AuctionMessage types
const (
	MessageTypeCreated      = "CREATED"
	MessageTypeBid          = "BID"
	MessageTypeSelectedRune = "SELECTED_RUNE"
	MessageTypeCancelled    = "CANCELLED"
	MessageTypeClaimed      = "CLAIMED"
	MessageTypeMessaged     = "MESSAGED"
	MessageTypeInfo         = "INFO"
)

// AuctionMessage is one entry of the append-only auction narrative, keyed by
// "lot_sequence". Immutable once written.
type AuctionMessage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Key       string         `gorm:"uniqueIndex" json:"key"`
	Lot       string         `gorm:"index" json:"lot"`
	Index     int64          `json:"index"`
	Type      string         `json:"type"`
	Address   string         `json:"address"`
	Alias     string         `json:"alias"`
	PrevRune  uint8          `json:"prev_rune"`
	Rune      uint8          `json:"rune"`
	Message   string         `json:"message"`
	Bid       int64          `json:"bid"`
	BidCount  int64          `json:"bid_count"`
	Timestamp time.Time      `json:"timestamp"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// Stats is the process-wide aggregate singleton, stored under key "0" and
// created with zeroed counters when absent.
type Stats struct {
	ID                      uint           `gorm:"primaryKey" json:"id"`
	Key                     string         `gorm:"uniqueIndex" json:"key"`
	TotalBidsCount          int64          `json:"total_bids_count"`
	TotalRuneSwitches       int64          `json:"total_rune_switches"`
	TotalMessagesSent       int64          `json:"total_messages_sent"`
	TotalEmissionsHarvested int64          `json:"total_emissions_harvested"`
	TotalEmissionsBurned    int64          `json:"total_emissions_burned"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	DeletedAt               gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// SetupModels runs the schema migrations for all derived entities and the
// raw event log.
func SetupModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&EventRecord{},
		&Auction{},
		&AuctionBidData{},
		&AuctionParticipant{},
		&AuctionRune{},
		&User{},
		&AuctionMessage{},
		&Stats{},
	)
}
