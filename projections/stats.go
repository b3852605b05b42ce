package projections

import (
	"context"

	"example.com/auctionhouse/services/indexer/store"
)

// updateStats advances the process-wide counters for one interaction event.
// Rune switches count only when a penalizable switch actually happened, and
// messages count only when the surviving (unsuppressed) text is non-empty.
// The counters are additive: they are correct only for full-log replays.
func updateStats(ctx context.Context, st store.EntityStore, bidWeight int64, switchedRunes bool, message string) error {
	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	stats.TotalBidsCount += bidWeight
	if switchedRunes {
		stats.TotalRuneSwitches++
	}
	if len(message) > 0 {
		stats.TotalMessagesSent++
	}

	return st.SaveStats(ctx, stats)
}

// addEmissionStats records one harvest in the global counters.
func addEmissionStats(ctx context.Context, st store.EntityStore, amount int64) error {
	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	stats.TotalEmissionsHarvested += amount
	stats.TotalEmissionsBurned += amount

	return st.SaveStats(ctx, stats)
}
