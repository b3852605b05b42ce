// Package ledger exposes the read-only queries the projector makes against
// the authoritative auctioneer ledger. Reads are point-in-time and must not
// be cached across events.
package ledger

import "context"

// Reader answers configuration questions the event payloads do not carry.
type Reader interface {
	// AuctionHasEmissions reports whether the lot pays out emissions.
	AuctionHasEmissions(ctx context.Context, lot int64) (bool, error)

	// AuctionHasRunes reports whether the lot supports rune selection.
	AuctionHasRunes(ctx context.Context, lot int64) (bool, error)

	// RuneSwitchPenalty returns the configured switch penalty in basis
	// points (0-10000).
	RuneSwitchPenalty(ctx context.Context) (int64, error)
}
