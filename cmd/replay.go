package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"example.com/auctionhouse/services/indexer/cache"
	"example.com/auctionhouse/services/indexer/eventstore"
	"example.com/auctionhouse/services/indexer/ledger"
	"example.com/auctionhouse/services/indexer/models"
	"example.com/auctionhouse/services/indexer/projections"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the derived entities from the event log",
	Long: `Wipe every derived entity, reset the processed flags and re-apply the
full event log from the beginning. The statistics counters are additive, so a
rebuild must always start from an empty derived state.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	log.Info().Msg("Starting full replay")

	ctx := context.Background()

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	if err := wipeDerived(db); err != nil {
		return err
	}

	eventStore := eventstore.NewGormEventStore(db)
	if err := eventStore.ResetProcessed(ctx); err != nil {
		return err
	}

	projector := projections.NewProjector(ledger.NewHTTPReader(cfg.Ledger))
	processor := projections.NewEventProcessor(db, projector, nil, cfg.Projector)

	count, err := processor.ProcessAll(ctx)
	if err != nil {
		log.Error().Err(err).Int("processed", count).Msg("Replay halted")
		return err
	}

	if redisCache, cacheErr := cache.NewRedisClient(cfg.Redis); cacheErr == nil {
		if err := redisCache.FlushAll(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush cache after replay")
		}
	}

	log.Info().Int("processed", count).Msg("Replay complete")
	return nil
}

// wipeDerived hard-deletes every derived entity. The raw event log stays.
func wipeDerived(db *gorm.DB) error {
	derived := []interface{}{
		&models.Auction{},
		&models.AuctionBidData{},
		&models.AuctionParticipant{},
		&models.AuctionRune{},
		&models.User{},
		&models.AuctionMessage{},
		&models.Stats{},
	}

	for _, model := range derived {
		if err := db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
