package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/auctionhouse/services/indexer/config"
	"example.com/auctionhouse/services/indexer/eventstore"
	"example.com/auctionhouse/services/indexer/ledger"
	"example.com/auctionhouse/services/indexer/messaging"
	"example.com/auctionhouse/services/indexer/models"
	"example.com/auctionhouse/services/indexer/projections"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the projection worker",
	Long:  `Consume auctioneer events from Azure Service Bus, append them to the event log and project them into the derived entities`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	log.Info().Msg("Starting worker")

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	eventStore := eventstore.NewGormEventStore(db)
	ledgerReader := ledger.NewHTTPReader(cfg.Ledger)
	projector := projections.NewProjector(ledgerReader)

	var search *projections.SearchIndexer
	if cfg.Elastic.Enabled {
		esClient, err := projections.NewElasticsearchClient(cfg.Elastic)
		if err != nil {
			return errors.Wrap(err, "failed to initialize Elasticsearch")
		}
		search = projections.NewSearchIndexer(esClient, cfg.Elastic)
	}

	processor := projections.NewEventProcessor(db, projector, search, cfg.Projector)
	processor.Start()
	defer processor.Stop()

	azureBus, err := messaging.NewAzureClient(cfg.Azure)
	if err != nil {
		return errors.Wrap(err, "failed to initialize Azure Service Bus")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Azure Service Bus consumer")
		return azureBus.StartConsumers(ctx, cfg.Azure.QueueName, messaging.NewProcessor(eventStore))
	})

	// Rune reconciliation runs as a fallback integrity check.
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		reconciler := projections.NewReconciler(db)
		interval := cfg.Projector.ReconcileInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				if err := reconciler.Run(ctx); err != nil {
					log.Error().Err(err).Msg("Rune reconciliation failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

func initDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}

	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	return db, nil
}
