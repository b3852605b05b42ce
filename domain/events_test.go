package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeEvent(t *testing.T, kind string, payload interface{}) Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Event{
		Kind:      kind,
		TxHash:    "0xabc",
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Data:      data,
	}
}

func TestDecodeBidEvent(t *testing.T) {
	ev := makeEvent(t, Bid, BidEvent{
		Lot:       1,
		User:      "0x00112233445566778899aabbccddeeff00112233",
		Bid:       101,
		BidCount:  100,
		Rune:      2,
		Timestamp: 1700000000,
	})

	payload, err := DecodeEvent(ev)
	require.NoError(t, err)

	bid, ok := payload.(*BidEvent)
	require.True(t, ok)
	require.Equal(t, int64(100), bid.BidCount)
	require.Equal(t, uint8(2), bid.Rune)
}

func TestDecodeUnknownKind(t *testing.T) {
	ev := makeEvent(t, "V1_SOMETHING_ELSE", map[string]interface{}{})
	_, err := DecodeEvent(ev)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown event kind")
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	// A bid without a user fails validation.
	ev := makeEvent(t, Bid, BidEvent{Lot: 1, BidCount: 100, Timestamp: 1700000000})
	_, err := DecodeEvent(ev)
	require.Error(t, err)
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	ev := Event{Kind: Bid, Data: json.RawMessage(`{`)}
	_, err := DecodeEvent(ev)
	require.Error(t, err)
}
