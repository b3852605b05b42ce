package store

import (
	"context"
	"errors"

	"example.com/auctionhouse/services/indexer/models"
)

// Common store errors
var (
	// ErrNotFound is returned when a required entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicateMessage is returned when a log entry already exists at the
	// targeted (lot, sequence) slot.
	ErrDuplicateMessage = errors.New("auction message already exists")
)

// EntityStore is the persistence adapter for the derived entities. Load
// methods return ErrNotFound when the entity is absent; Ensure methods
// return a zero-initialized entity instead, which only becomes durable once
// saved. Within one event's processing the store is exclusively owned by
// the projector and writes are last-write-wins per key.
type EntityStore interface {
	// Auction loads the auction for a lot.
	Auction(ctx context.Context, lot int64) (*models.Auction, error)

	// SaveAuction persists an auction.
	SaveAuction(ctx context.Context, auction *models.Auction) error

	// BidData loads the per-lot bid aggregates.
	BidData(ctx context.Context, lot int64) (*models.AuctionBidData, error)

	// SaveBidData persists per-lot bid aggregates.
	SaveBidData(ctx context.Context, data *models.AuctionBidData) error

	// EnsureUser loads a user, or returns a zeroed user for the address.
	EnsureUser(ctx context.Context, address string) (*models.User, error)

	// SaveUser persists a user.
	SaveUser(ctx context.Context, user *models.User) error

	// EnsureParticipant loads a participant, or returns a zeroed one.
	EnsureParticipant(ctx context.Context, lot int64, address string) (*models.AuctionParticipant, error)

	// SaveParticipant persists a participant.
	SaveParticipant(ctx context.Context, participant *models.AuctionParticipant) error

	// EnsureRune loads a rune aggregate, or returns a zeroed one.
	EnsureRune(ctx context.Context, lot int64, rune uint8) (*models.AuctionRune, error)

	// SaveRune persists a rune aggregate.
	SaveRune(ctx context.Context, rune *models.AuctionRune) error

	// AuctionRunes lists all rune aggregates of a lot.
	AuctionRunes(ctx context.Context, lot int64) ([]models.AuctionRune, error)

	// Stats loads the singleton counters, creating them zeroed when absent.
	Stats(ctx context.Context) (*models.Stats, error)

	// SaveStats persists the singleton counters.
	SaveStats(ctx context.Context, stats *models.Stats) error

	// AppendMessage appends one immutable entry to the auction log.
	AppendMessage(ctx context.Context, message *models.AuctionMessage) error
}
