package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Entity keys are stable strings. Composite keys join a decimal lot id and a
// hex address (or rune number, or sequence number) with an underscore, which
// is valid in neither part.
const keySeparator = "_"

// StatsKey is the well-known key of the singleton Stats entity.
const StatsKey = "0"

// AuctionKey returns the canonical key for a lot.
func AuctionKey(lot int64) string {
	return strconv.FormatInt(lot, 10)
}

// ParticipantKey returns the composite key for a user's position in a lot.
func ParticipantKey(lot int64, address string) string {
	return AuctionKey(lot) + keySeparator + address
}

// RuneKey returns the composite key for a rune aggregate within a lot.
func RuneKey(lot int64, rune uint8) string {
	return AuctionKey(lot) + keySeparator + strconv.FormatUint(uint64(rune), 10)
}

// MessageKey returns the composite key for the log entry at a lot sequence.
func MessageKey(lot int64, sequence int64) string {
	return AuctionKey(lot) + keySeparator + strconv.FormatInt(sequence, 10)
}

// NormalizeAddress lowercases a hex wallet address and rejects anything that
// is not 0x followed by 40 hex digits. Upstream events are well-formed in
// normal operation; a failure here means the feed is corrupted.
func NormalizeAddress(address string) (string, error) {
	addr := strings.ToLower(address)
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return "", fmt.Errorf("malformed address: %q", address)
	}
	for _, c := range addr[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("malformed address: %q", address)
		}
	}
	return addr, nil
}
