package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/models"
)

func TestMemoryStoreAuctionNotFound(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.Auction(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreEnsureUserReturnsZeroed(t *testing.T) {
	st := NewMemoryStore()

	user, err := st.EnsureUser(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, "0xabc", user.Address)
	require.Empty(t, user.InteractedAuctions)
	require.Zero(t, user.TotalBidsCount)

	// Ensure without Save leaves the store untouched.
	user.TotalBidsCount = 10
	again, err := st.EnsureUser(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Zero(t, again.TotalBidsCount)
}

func TestMemoryStoreSaveUserCopies(t *testing.T) {
	st := NewMemoryStore()

	user, err := st.EnsureUser(context.Background(), "0xabc")
	require.NoError(t, err)
	user.InteractedAuctions = append(user.InteractedAuctions, "7")
	require.NoError(t, st.SaveUser(context.Background(), user))

	// Mutating the caller's copy must not leak into the store.
	user.InteractedAuctions[0] = "99"

	stored, err := st.EnsureUser(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, models.LotList{"7"}, stored.InteractedAuctions)
}

func TestMemoryStoreEnsureParticipant(t *testing.T) {
	st := NewMemoryStore()

	participant, err := st.EnsureParticipant(context.Background(), 7, "0xabc")
	require.NoError(t, err)
	require.Equal(t, domain.ParticipantKey(7, "0xabc"), participant.Key)
	require.Equal(t, "7", participant.Lot)
	require.Equal(t, domain.NoRune, participant.Rune)
	require.False(t, participant.HasBid)

	participant.Bids = 50
	participant.HasBid = true
	require.NoError(t, st.SaveParticipant(context.Background(), participant))

	stored, err := st.EnsureParticipant(context.Background(), 7, "0xabc")
	require.NoError(t, err)
	require.Equal(t, int64(50), stored.Bids)
}

func TestMemoryStoreAuctionRunes(t *testing.T) {
	st := NewMemoryStore()

	for _, r := range []uint8{3, 1, 2} {
		entry, err := st.EnsureRune(context.Background(), 7, r)
		require.NoError(t, err)
		entry.Bids = int64(r) * 10
		require.NoError(t, st.SaveRune(context.Background(), entry))
	}
	other, err := st.EnsureRune(context.Background(), 8, 1)
	require.NoError(t, err)
	require.NoError(t, st.SaveRune(context.Background(), other))

	runes, err := st.AuctionRunes(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, runes, 3)
	for i, entry := range runes {
		require.Equal(t, uint8(i+1), entry.Rune)
	}
}

func TestMemoryStoreAppendMessageRejectsDuplicates(t *testing.T) {
	st := NewMemoryStore()

	message := &models.AuctionMessage{
		Key:   domain.MessageKey(7, 1),
		Lot:   "7",
		Index: 1,
		Type:  models.MessageTypeBid,
	}
	require.NoError(t, st.AppendMessage(context.Background(), message))

	err := st.AppendMessage(context.Background(), message)
	require.ErrorIs(t, err, ErrDuplicateMessage)
}

func TestMemoryStoreStatsSingleton(t *testing.T) {
	st := NewMemoryStore()

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StatsKey, stats.Key)
	require.Zero(t, stats.TotalBidsCount)

	stats.TotalBidsCount = 12
	require.NoError(t, st.SaveStats(context.Background(), stats))

	stored, err := st.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(12), stored.TotalBidsCount)
}
