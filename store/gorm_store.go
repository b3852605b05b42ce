package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/models"
)

// GormStore implements EntityStore using GORM. It is constructed around
// either a root connection or an open transaction; the event processor
// scopes one GormStore to one transaction so that all writes of a single
// event commit or roll back as a unit.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM entity store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Auction loads the auction for a lot.
func (s *GormStore) Auction(ctx context.Context, lot int64) (*models.Auction, error) {
	var auction models.Auction
	err := s.db.WithContext(ctx).Where("lot = ?", domain.AuctionKey(lot)).First(&auction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("auction %d: %w", lot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load auction %d: %w", lot, err)
	}
	return &auction, nil
}

// SaveAuction persists an auction.
func (s *GormStore) SaveAuction(ctx context.Context, auction *models.Auction) error {
	if err := s.db.WithContext(ctx).Save(auction).Error; err != nil {
		return fmt.Errorf("failed to save auction %s: %w", auction.Lot, err)
	}
	return nil
}

// BidData loads the per-lot bid aggregates.
func (s *GormStore) BidData(ctx context.Context, lot int64) (*models.AuctionBidData, error) {
	var data models.AuctionBidData
	err := s.db.WithContext(ctx).Where("lot = ?", domain.AuctionKey(lot)).First(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("bid data for auction %d: %w", lot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bid data for auction %d: %w", lot, err)
	}
	return &data, nil
}

// SaveBidData persists per-lot bid aggregates.
func (s *GormStore) SaveBidData(ctx context.Context, data *models.AuctionBidData) error {
	if err := s.db.WithContext(ctx).Save(data).Error; err != nil {
		return fmt.Errorf("failed to save bid data for auction %s: %w", data.Lot, err)
	}
	return nil
}

// EnsureUser loads a user, or returns a zeroed user for the address.
func (s *GormStore) EnsureUser(ctx context.Context, address string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.User{
			Address:             address,
			InteractedAuctions:  models.LotList{},
			HarvestableAuctions: models.LotList{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", address, err)
	}
	return &user, nil
}

// SaveUser persists a user.
func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.Address, err)
	}
	return nil
}

// EnsureParticipant loads a participant, or returns a zeroed one.
func (s *GormStore) EnsureParticipant(ctx context.Context, lot int64, address string) (*models.AuctionParticipant, error) {
	key := domain.ParticipantKey(lot, address)

	var participant models.AuctionParticipant
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.AuctionParticipant{
			Key:     key,
			Lot:     domain.AuctionKey(lot),
			Address: address,
			Rune:    domain.NoRune,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load participant %s: %w", key, err)
	}
	return &participant, nil
}

// SaveParticipant persists a participant.
func (s *GormStore) SaveParticipant(ctx context.Context, participant *models.AuctionParticipant) error {
	if err := s.db.WithContext(ctx).Save(participant).Error; err != nil {
		return fmt.Errorf("failed to save participant %s: %w", participant.Key, err)
	}
	return nil
}

// EnsureRune loads a rune aggregate, or returns a zeroed one.
func (s *GormStore) EnsureRune(ctx context.Context, lot int64, rune uint8) (*models.AuctionRune, error) {
	key := domain.RuneKey(lot, rune)

	var entry models.AuctionRune
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.AuctionRune{
			Key:  key,
			Lot:  domain.AuctionKey(lot),
			Rune: rune,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rune %s: %w", key, err)
	}
	return &entry, nil
}

// SaveRune persists a rune aggregate.
func (s *GormStore) SaveRune(ctx context.Context, rune *models.AuctionRune) error {
	if err := s.db.WithContext(ctx).Save(rune).Error; err != nil {
		return fmt.Errorf("failed to save rune %s: %w", rune.Key, err)
	}
	return nil
}

// AuctionRunes lists all rune aggregates of a lot.
func (s *GormStore) AuctionRunes(ctx context.Context, lot int64) ([]models.AuctionRune, error) {
	var runes []models.AuctionRune
	if err := s.db.WithContext(ctx).
		Where("lot = ?", domain.AuctionKey(lot)).
		Order("rune ASC").
		Find(&runes).Error; err != nil {
		return nil, fmt.Errorf("failed to list runes for auction %d: %w", lot, err)
	}
	return runes, nil
}

// Stats loads the singleton counters, creating them zeroed when absent.
func (s *GormStore) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := s.db.WithContext(ctx).Where("key = ?", domain.StatsKey).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Stats{Key: domain.StatsKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &stats, nil
}

// SaveStats persists the singleton counters.
func (s *GormStore) SaveStats(ctx context.Context, stats *models.Stats) error {
	if err := s.db.WithContext(ctx).Save(stats).Error; err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// AppendMessage appends one immutable entry to the auction log. The unique
// index on the composite key enforces the append-only contract.
func (s *GormStore) AppendMessage(ctx context.Context, message *models.AuctionMessage) error {
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("message %s: %w", message.Key, ErrDuplicateMessage)
		}
		return fmt.Errorf("failed to append message %s: %w", message.Key, err)
	}
	return nil
}
