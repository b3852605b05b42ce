package projections

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/auctionhouse/services/indexer/models"
)

// Reconciler periodically verifies the rune reconciliation invariant: for
// every rune-enabled lot, the sum of the per-rune aggregates must equal the
// lot's total bid weight. A mismatch means the projection diverged and the
// event log should be replayed.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a new reconciler.
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Run checks every rune-enabled auction and returns an error naming the
// number of diverged lots, if any.
func (r *Reconciler) Run(ctx context.Context) error {
	var auctions []models.Auction
	if err := r.db.WithContext(ctx).
		Where("has_runes = ?", true).
		Find(&auctions).Error; err != nil {
		return fmt.Errorf("failed to list rune auctions: %w", err)
	}

	mismatches := 0
	for _, auction := range auctions {
		var runeSum int64
		if err := r.db.WithContext(ctx).
			Model(&models.AuctionRune{}).
			Where("lot = ?", auction.Lot).
			Select("COALESCE(SUM(bids), 0)").
			Scan(&runeSum).Error; err != nil {
			return fmt.Errorf("failed to sum runes for lot %s: %w", auction.Lot, err)
		}

		var bidData models.AuctionBidData
		if err := r.db.WithContext(ctx).
			Where("lot = ?", auction.Lot).
			First(&bidData).Error; err != nil {
			return fmt.Errorf("failed to load bid data for lot %s: %w", auction.Lot, err)
		}

		if runeSum != bidData.Bids {
			mismatches++
			log.Error().
				Str("lot", auction.Lot).
				Int64("runeSum", runeSum).
				Int64("totalBids", bidData.Bids).
				Msg("Rune aggregates diverged from lot total")
		}
	}

	if mismatches > 0 {
		return fmt.Errorf("%d auction(s) failed rune reconciliation", mismatches)
	}

	log.Info().Int("auctions", len(auctions)).Msg("Rune reconciliation passed")
	return nil
}
