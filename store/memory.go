package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/models"
)

// MemoryStore is an in-memory EntityStore. It backs projector tests and
// hands out copies on load and save so aliasing between the projector and
// the stored state cannot hide bugs.
type MemoryStore struct {
	auctions     map[string]models.Auction
	bidData      map[string]models.AuctionBidData
	users        map[string]models.User
	participants map[string]models.AuctionParticipant
	runes        map[string]models.AuctionRune
	messages     map[string]models.AuctionMessage
	stats        *models.Stats
}

// NewMemoryStore creates an empty in-memory entity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions:     make(map[string]models.Auction),
		bidData:      make(map[string]models.AuctionBidData),
		users:        make(map[string]models.User),
		participants: make(map[string]models.AuctionParticipant),
		runes:        make(map[string]models.AuctionRune),
		messages:     make(map[string]models.AuctionMessage),
	}
}

func cloneLots(lots models.LotList) models.LotList {
	out := make(models.LotList, len(lots))
	copy(out, lots)
	return out
}

func cloneUser(u models.User) models.User {
	u.InteractedAuctions = cloneLots(u.InteractedAuctions)
	u.HarvestableAuctions = cloneLots(u.HarvestableAuctions)
	return u
}

// Auction loads the auction for a lot.
func (s *MemoryStore) Auction(_ context.Context, lot int64) (*models.Auction, error) {
	auction, ok := s.auctions[domain.AuctionKey(lot)]
	if !ok {
		return nil, fmt.Errorf("auction %d: %w", lot, ErrNotFound)
	}
	return &auction, nil
}

// SaveAuction persists an auction.
func (s *MemoryStore) SaveAuction(_ context.Context, auction *models.Auction) error {
	s.auctions[auction.Lot] = *auction
	return nil
}

// BidData loads the per-lot bid aggregates.
func (s *MemoryStore) BidData(_ context.Context, lot int64) (*models.AuctionBidData, error) {
	data, ok := s.bidData[domain.AuctionKey(lot)]
	if !ok {
		return nil, fmt.Errorf("bid data for auction %d: %w", lot, ErrNotFound)
	}
	return &data, nil
}

// SaveBidData persists per-lot bid aggregates.
func (s *MemoryStore) SaveBidData(_ context.Context, data *models.AuctionBidData) error {
	s.bidData[data.Lot] = *data
	return nil
}

// EnsureUser loads a user, or returns a zeroed user for the address.
func (s *MemoryStore) EnsureUser(_ context.Context, address string) (*models.User, error) {
	if user, ok := s.users[address]; ok {
		user = cloneUser(user)
		return &user, nil
	}
	return &models.User{
		Address:             address,
		InteractedAuctions:  models.LotList{},
		HarvestableAuctions: models.LotList{},
	}, nil
}

// SaveUser persists a user.
func (s *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	s.users[user.Address] = cloneUser(*user)
	return nil
}

// EnsureParticipant loads a participant, or returns a zeroed one.
func (s *MemoryStore) EnsureParticipant(_ context.Context, lot int64, address string) (*models.AuctionParticipant, error) {
	key := domain.ParticipantKey(lot, address)
	if participant, ok := s.participants[key]; ok {
		return &participant, nil
	}
	return &models.AuctionParticipant{
		Key:     key,
		Lot:     domain.AuctionKey(lot),
		Address: address,
		Rune:    domain.NoRune,
	}, nil
}

// SaveParticipant persists a participant.
func (s *MemoryStore) SaveParticipant(_ context.Context, participant *models.AuctionParticipant) error {
	s.participants[participant.Key] = *participant
	return nil
}

// EnsureRune loads a rune aggregate, or returns a zeroed one.
func (s *MemoryStore) EnsureRune(_ context.Context, lot int64, rune uint8) (*models.AuctionRune, error) {
	key := domain.RuneKey(lot, rune)
	if entry, ok := s.runes[key]; ok {
		return &entry, nil
	}
	return &models.AuctionRune{
		Key:  key,
		Lot:  domain.AuctionKey(lot),
		Rune: rune,
	}, nil
}

// SaveRune persists a rune aggregate.
func (s *MemoryStore) SaveRune(_ context.Context, rune *models.AuctionRune) error {
	s.runes[rune.Key] = *rune
	return nil
}

// AuctionRunes lists all rune aggregates of a lot.
func (s *MemoryStore) AuctionRunes(_ context.Context, lot int64) ([]models.AuctionRune, error) {
	lotKey := domain.AuctionKey(lot)
	var runes []models.AuctionRune
	for _, entry := range s.runes {
		if entry.Lot == lotKey {
			runes = append(runes, entry)
		}
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i].Rune < runes[j].Rune })
	return runes, nil
}

// Stats loads the singleton counters, creating them zeroed when absent.
func (s *MemoryStore) Stats(_ context.Context) (*models.Stats, error) {
	if s.stats != nil {
		stats := *s.stats
		return &stats, nil
	}
	return &models.Stats{Key: domain.StatsKey}, nil
}

// SaveStats persists the singleton counters.
func (s *MemoryStore) SaveStats(_ context.Context, stats *models.Stats) error {
	clone := *stats
	s.stats = &clone
	return nil
}

// AppendMessage appends one immutable entry to the auction log.
func (s *MemoryStore) AppendMessage(_ context.Context, message *models.AuctionMessage) error {
	if _, ok := s.messages[message.Key]; ok {
		return fmt.Errorf("message %s: %w", message.Key, ErrDuplicateMessage)
	}
	s.messages[message.Key] = *message
	return nil
}

// Messages returns the stored log entries of a lot ordered by sequence.
func (s *MemoryStore) Messages(lot int64) []models.AuctionMessage {
	lotKey := domain.AuctionKey(lot)
	var messages []models.AuctionMessage
	for _, m := range s.messages {
		if m.Lot == lotKey {
			messages = append(messages, m)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].Index < messages[j].Index })
	return messages
}

// Snapshot serializes the full derived state deterministically. Two
// projection runs over the same event log must produce identical snapshots.
func (s *MemoryStore) Snapshot() ([]byte, error) {
	state := map[string]interface{}{
		"auctions":     s.auctions,
		"bid_data":     s.bidData,
		"users":        s.users,
		"participants": s.participants,
		"runes":        s.runes,
		"messages":     s.messages,
		"stats":        s.stats,
	}
	return json.Marshal(state)
}
