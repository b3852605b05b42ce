package projections

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/models"
	"example.com/auctionhouse/services/indexer/store"
)

const (
	alice = "0x00112233445566778899aabbccddeeff00112233"
	bob   = "0xffeeddccbbaa99887766554433221100ffeeddcc"

	runeA uint8 = 1
	runeB uint8 = 2
)

// stubLedger is a fixed-configuration ledger reader for tests.
type stubLedger struct {
	hasEmissions bool
	hasRunes     bool
	penaltyBP    int64
}

func (s *stubLedger) AuctionHasEmissions(context.Context, int64) (bool, error) {
	return s.hasEmissions, nil
}

func (s *stubLedger) AuctionHasRunes(context.Context, int64) (bool, error) {
	return s.hasRunes, nil
}

func (s *stubLedger) RuneSwitchPenalty(context.Context) (int64, error) {
	return s.penaltyBP, nil
}

func event(t *testing.T, kind string, seq int, payload interface{}) domain.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.Event{
		ID:          fmt.Sprintf("ev-%d", seq),
		Kind:        kind,
		BlockHeight: int64(100 + seq),
		LogIndex:    0,
		TxHash:      fmt.Sprintf("0xhash%d", seq),
		Timestamp:   time.Unix(1700000000+int64(seq), 0).UTC(),
		Data:        data,
	}
}

func applyAll(t *testing.T, p *Projector, st store.EntityStore, events []domain.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, p.Apply(context.Background(), st, ev))
	}
}

func runeAuctionFixture(t *testing.T) []domain.Event {
	t.Helper()
	return []domain.Event{
		event(t, domain.AuctionCreated, 0, domain.AuctionCreatedEvent{
			Lot: 7, Name: "Gavel", UnlockTimestamp: 1700000000,
		}),
	}
}

func TestAuctionCreated(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasEmissions: true, hasRunes: true, penaltyBP: 1000})

	applyAll(t, p, st, runeAuctionFixture(t))

	auction, err := st.Auction(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Gavel", auction.Name)
	require.True(t, auction.HasEmissions)
	require.True(t, auction.HasRunes)
	require.False(t, auction.Cancelled)
	require.Zero(t, auction.Sequence)

	bidData, err := st.BidData(context.Background(), 7)
	require.NoError(t, err)
	require.Zero(t, bidData.Bids)

	messages := st.Messages(7)
	require.Len(t, messages, 1)
	require.Equal(t, models.MessageTypeCreated, messages[0].Type)
	require.Equal(t, "CREATED", messages[0].Message)
	require.Zero(t, messages[0].Index)
}

func TestAuctionCreatedIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true})

	created := runeAuctionFixture(t)[0]
	require.NoError(t, p.Apply(context.Background(), st, created))
	require.NoError(t, p.Apply(context.Background(), st, created))

	require.Len(t, st.Messages(7), 1)
}

func TestFirstBid(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasEmissions: true, hasRunes: true, penaltyBP: 1000})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA,
			Alias: "Alice", Message: "gm", Timestamp: 1700000100,
		}),
	)
	applyAll(t, p, st, events)

	participant, err := st.EnsureParticipant(context.Background(), 7, alice)
	require.NoError(t, err)
	require.True(t, participant.HasBid)
	require.Equal(t, int64(100), participant.Bids)
	require.Equal(t, runeA, participant.Rune)

	user, err := st.EnsureUser(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, int64(100), user.TotalBidsCount)
	require.Equal(t, 1, user.TotalAuctionsParticipated)
	require.Equal(t, models.LotList{"7"}, user.HarvestableAuctions)
	require.Equal(t, models.LotList{"7"}, user.InteractedAuctions)

	bidData, err := st.BidData(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(100), bidData.Bids)
	require.Equal(t, int64(101), bidData.Bid)
	require.Equal(t, alice, bidData.BidUser)

	runeAgg, err := st.EnsureRune(context.Background(), 7, runeA)
	require.NoError(t, err)
	require.Equal(t, int64(100), runeAgg.Bids)

	messages := st.Messages(7)
	require.Len(t, messages, 2)
	require.Equal(t, models.MessageTypeBid, messages[1].Type)
	require.Equal(t, "gm", messages[1].Message)
	require.Equal(t, int64(1), messages[1].Index)
	require.Equal(t, domain.NoRune, messages[1].PrevRune)
	require.Equal(t, runeA, messages[1].Rune)
}

// The canonical switch scenario: penalty 1000bp, 100 weight on rune A,
// switch to rune B with no new bid.
func TestRuneSwitchRedistribution(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 1000})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA, Timestamp: 1700000100,
		}),
		event(t, domain.SelectedRune, 2, domain.SelectedRuneEvent{
			Lot: 7, User: alice, PrevRune: runeA, Rune: runeB,
		}),
	)
	applyAll(t, p, st, events)

	oldRune, err := st.EnsureRune(context.Background(), 7, runeA)
	require.NoError(t, err)
	require.Zero(t, oldRune.Bids)

	newRune, err := st.EnsureRune(context.Background(), 7, runeB)
	require.NoError(t, err)
	require.Equal(t, int64(90), newRune.Bids)

	bidData, err := st.BidData(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(90), bidData.Bids)

	participant, err := st.EnsureParticipant(context.Background(), 7, alice)
	require.NoError(t, err)
	require.Equal(t, int64(90), participant.Bids)
	require.Equal(t, runeB, participant.Rune)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalRuneSwitches)
}

// Switching runes in the same event that adds weight penalizes only the
// prior weight; the incoming weight joins after the discount.
func TestRuneSwitchWithNewBid(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 1000})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA, Timestamp: 1700000100,
		}),
		event(t, domain.Bid, 2, domain.BidEvent{
			Lot: 7, User: alice, Bid: 102, BidCount: 50, Rune: runeB, Timestamp: 1700000200,
		}),
	)
	applyAll(t, p, st, events)

	participant, err := st.EnsureParticipant(context.Background(), 7, alice)
	require.NoError(t, err)
	require.Equal(t, int64(140), participant.Bids) // 90 after penalty + 50 new

	newRune, err := st.EnsureRune(context.Background(), 7, runeB)
	require.NoError(t, err)
	require.Equal(t, int64(140), newRune.Bids)

	bidData, err := st.BidData(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(140), bidData.Bids)
}

// Reconciliation invariant: the rune aggregates always sum to the lot total.
func TestRuneSumMatchesLotTotal(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 250})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA, Timestamp: 1700000100,
		}),
		event(t, domain.Bid, 2, domain.BidEvent{
			Lot: 7, User: bob, Bid: 102, BidCount: 77, Rune: runeB, Timestamp: 1700000200,
		}),
		event(t, domain.SelectedRune, 3, domain.SelectedRuneEvent{
			Lot: 7, User: alice, PrevRune: runeA, Rune: runeB,
		}),
		event(t, domain.Bid, 4, domain.BidEvent{
			Lot: 7, User: alice, Bid: 103, BidCount: 13, Rune: runeB, Timestamp: 1700000300,
		}),
	)
	applyAll(t, p, st, events)

	runes, err := st.AuctionRunes(context.Background(), 7)
	require.NoError(t, err)

	var sum int64
	for _, entry := range runes {
		sum += entry.Bids
		require.GreaterOrEqual(t, entry.Bids, int64(0))
	}

	bidData, err := st.BidData(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, bidData.Bids, sum)
}

func TestSequenceIsGapless(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 1000})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA, Timestamp: 1700000100,
		}),
		event(t, domain.SelectedRune, 2, domain.SelectedRuneEvent{
			Lot: 7, User: alice, PrevRune: runeA, Rune: runeB,
		}),
		event(t, domain.Messaged, 3, domain.MessagedEvent{
			Lot: 7, User: alice, Message: "hello",
		}),
		event(t, domain.Claimed, 4, domain.ClaimedEvent{
			Lot: 7, User: alice,
		}),
	)
	applyAll(t, p, st, events)

	auction, err := st.Auction(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(4), auction.Sequence)

	messages := st.Messages(7)
	require.Len(t, messages, 5)
	for i, message := range messages {
		require.Equal(t, int64(i), message.Index)
	}
}

func TestCancelled(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{})

	events := append(runeAuctionFixture(t),
		event(t, domain.AuctionCancelled, 1, domain.AuctionCancelledEvent{Lot: 7}),
	)
	applyAll(t, p, st, events)

	auction, err := st.Auction(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, auction.Cancelled)
	require.True(t, auction.Finalized)

	messages := st.Messages(7)
	require.Len(t, messages, 2)
	require.Equal(t, models.MessageTypeInfo, messages[1].Type)
	require.Equal(t, "CANCELLED", messages[1].Message)
}

func TestClaimed(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 1000})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeB, Timestamp: 1700000100,
		}),
		event(t, domain.Claimed, 2, domain.ClaimedEvent{Lot: 7, User: alice, Alias: "Alice"}),
	)
	applyAll(t, p, st, events)

	participant, err := st.EnsureParticipant(context.Background(), 7, alice)
	require.NoError(t, err)
	require.True(t, participant.Claimed)

	user, err := st.EnsureUser(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, int64(1), user.TotalAuctionsWon)

	messages := st.Messages(7)
	require.Equal(t, models.MessageTypeClaimed, messages[2].Type)
	require.Equal(t, runeB, messages[2].Rune)
}

func TestMutedUserSuppression(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 1000})

	events := append(runeAuctionFixture(t),
		event(t, domain.UpdatedAlias, 1, domain.UpdatedAliasEvent{User: alice, Alias: "Alice"}),
		event(t, domain.MutedUser, 2, domain.MutedUserEvent{User: alice, Muted: true}),
		event(t, domain.Bid, 3, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA,
			Alias: "Alice", Message: "hello", Timestamp: 1700000100,
		}),
	)
	applyAll(t, p, st, events)

	user, err := st.EnsureUser(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, user.Muted)
	require.Empty(t, user.Alias)

	participant, err := st.EnsureParticipant(context.Background(), 7, alice)
	require.NoError(t, err)
	require.True(t, participant.Muted)
	require.Empty(t, participant.Alias)

	messages := st.Messages(7)
	require.Empty(t, messages[1].Message)
	require.Empty(t, messages[1].Alias)

	// Suppressed messages never count.
	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.TotalMessagesSent)
}

func TestUnmuteDoesNotRestoreAlias(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{})

	applyAll(t, p, st, []domain.Event{
		event(t, domain.UpdatedAlias, 0, domain.UpdatedAliasEvent{User: alice, Alias: "Alice"}),
		event(t, domain.MutedUser, 1, domain.MutedUserEvent{User: alice, Muted: true}),
		event(t, domain.MutedUser, 2, domain.MutedUserEvent{User: alice, Muted: false}),
		// Alias updates while muted are dropped entirely.
	})

	user, err := st.EnsureUser(context.Background(), alice)
	require.NoError(t, err)
	require.False(t, user.Muted)
	require.Empty(t, user.Alias)
}

func TestAliasUpdateWhileMutedIsNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{})

	applyAll(t, p, st, []domain.Event{
		event(t, domain.MutedUser, 0, domain.MutedUserEvent{User: alice, Muted: true}),
		event(t, domain.UpdatedAlias, 1, domain.UpdatedAliasEvent{User: alice, Alias: "Alice"}),
	})

	user, err := st.EnsureUser(context.Background(), alice)
	require.NoError(t, err)
	require.Empty(t, user.Alias)
}

func TestHarvestRemovesExactlyOneLot(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasEmissions: true, hasRunes: true, penaltyBP: 1000})

	events := []domain.Event{
		event(t, domain.AuctionCreated, 0, domain.AuctionCreatedEvent{Lot: 7, Name: "L", UnlockTimestamp: 1700000000}),
		event(t, domain.AuctionCreated, 1, domain.AuctionCreatedEvent{Lot: 8, Name: "M", UnlockTimestamp: 1700000000}),
		event(t, domain.Bid, 2, domain.BidEvent{Lot: 7, User: alice, Bid: 101, BidCount: 10, Rune: runeA, Timestamp: 1700000100}),
		event(t, domain.Bid, 3, domain.BidEvent{Lot: 8, User: alice, Bid: 102, BidCount: 10, Rune: runeA, Timestamp: 1700000200}),
		event(t, domain.HarvestedLot, 4, domain.HarvestedLotEvent{Lot: 7, User: alice, UserEmissions: 55}),
	}
	applyAll(t, p, st, events)

	user, err := st.EnsureUser(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, models.LotList{"8"}, user.HarvestableAuctions)
	require.Equal(t, int64(55), user.TotalEmissionsHarvested)
	require.Equal(t, int64(55), user.TotalEmissionsBurned)

	participant, err := st.EnsureParticipant(context.Background(), 7, alice)
	require.NoError(t, err)
	require.True(t, participant.Harvested)

	// Harvests are not narrated in the auction log.
	require.Len(t, st.Messages(7), 2)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(55), stats.TotalEmissionsHarvested)
	require.Equal(t, int64(55), stats.TotalEmissionsBurned)
}

func TestBidOnUnknownAuctionFails(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{})

	ev := event(t, domain.Bid, 0, domain.BidEvent{
		Lot: 99, User: alice, Bid: 101, BidCount: 100, Timestamp: 1700000100,
	})
	err := p.Apply(context.Background(), st, ev)
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatsCounters(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 1000})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA,
			Message: "gm", Timestamp: 1700000100,
		}),
		event(t, domain.SelectedRune, 2, domain.SelectedRuneEvent{
			Lot: 7, User: alice, PrevRune: runeA, Rune: runeB, Message: "switch",
		}),
		event(t, domain.SelectedRune, 3, domain.SelectedRuneEvent{
			Lot: 7, User: alice, PrevRune: runeB, Rune: runeB,
		}),
	)
	applyAll(t, p, st, events)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(100), stats.TotalBidsCount)
	require.Equal(t, int64(1), stats.TotalRuneSwitches) // re-selection is not a switch
	require.Equal(t, int64(2), stats.TotalMessagesSent)
}

// Replaying the same log into two empty stores yields byte-identical state.
func TestReplayDeterminism(t *testing.T) {
	fixture := func(t *testing.T) []domain.Event {
		return []domain.Event{
			event(t, domain.AuctionCreated, 0, domain.AuctionCreatedEvent{Lot: 7, Name: "Gavel", UnlockTimestamp: 1700000000}),
			event(t, domain.UpdatedAlias, 1, domain.UpdatedAliasEvent{User: bob, Alias: "Bob"}),
			event(t, domain.Bid, 2, domain.BidEvent{Lot: 7, User: alice, Bid: 101, BidCount: 100, Rune: runeA, Message: "gm", Timestamp: 1700000100}),
			event(t, domain.Bid, 3, domain.BidEvent{Lot: 7, User: bob, Bid: 102, BidCount: 60, Rune: runeB, Alias: "Bob", Timestamp: 1700000200}),
			event(t, domain.SelectedRune, 4, domain.SelectedRuneEvent{Lot: 7, User: alice, PrevRune: runeA, Rune: runeB}),
			event(t, domain.MutedUser, 5, domain.MutedUserEvent{User: bob, Muted: true}),
			event(t, domain.Messaged, 6, domain.MessagedEvent{Lot: 7, User: bob, Message: "spam"}),
			event(t, domain.Claimed, 7, domain.ClaimedEvent{Lot: 7, User: bob}),
			event(t, domain.HarvestedLot, 8, domain.HarvestedLotEvent{Lot: 7, User: alice, UserEmissions: 40}),
		}
	}

	p := NewProjector(&stubLedger{hasEmissions: true, hasRunes: true, penaltyBP: 1000})

	first := store.NewMemoryStore()
	applyAll(t, p, first, fixture(t))
	second := store.NewMemoryStore()
	applyAll(t, p, second, fixture(t))

	firstSnapshot, err := first.Snapshot()
	require.NoError(t, err)
	secondSnapshot, err := second.Snapshot()
	require.NoError(t, err)

	require.Equal(t, firstSnapshot, secondSnapshot)
}

func TestParticipantBidsNeverNegative(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewProjector(&stubLedger{hasRunes: true, penaltyBP: 10000})

	events := append(runeAuctionFixture(t),
		event(t, domain.Bid, 1, domain.BidEvent{
			Lot: 7, User: alice, Bid: 101, BidCount: 1, Rune: runeA, Timestamp: 1700000100,
		}),
		event(t, domain.SelectedRune, 2, domain.SelectedRuneEvent{
			Lot: 7, User: alice, PrevRune: runeA, Rune: runeB,
		}),
	)
	applyAll(t, p, st, events)

	participant, err := st.EnsureParticipant(context.Background(), 7, alice)
	require.NoError(t, err)
	require.GreaterOrEqual(t, participant.Bids, int64(0))
}
