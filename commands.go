package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/constants"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/crawler"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/db"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/messaging"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/redis"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/services"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/storage"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/work"
	"github.com/LexiconIndonesia/crypto-news-crawler/crawlers"
	"github.com/LexiconIndonesia/crypto-news-crawler/handler"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// runQueueSize bounds how many triggered runs serve keeps waiting behind the active one
const runQueueSize = 4

// app holds the process scoped connections. Every optional dependency is
// nil when disabled or unreachable.
type app struct {
	db       *db.DB
	gcs      *storage.GCSStorage
	nats     *messaging.NatsBroker
	redis    *redis.RedisClient
	fallback *storage.FallbackWriter
	driver   crawler.DriverProvider
	manager  *work.RunManager

	publisher *messaging.IngestPublisher
}

// newApp connects what cfg enables. Nothing here is fatal: a missing
// database degrades runs to fallback-only mode.
func newApp(ctx context.Context) *app {
	a := &app{
		driver: crawler.NewBrowserProvider(cfg),
	}

	// INITIATE DATABASES
	if cfg.PgSql.Configured() {
		dbConn, err := db.SetupDatabase(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Database unavailable, runs will write fallback files")
		} else {
			a.db = dbConn
		}
	} else {
		log.Warn().Msg("No database configured, running in fallback-only mode")
	}

	// gcs
	var fallbackOpts []storage.FallbackOption
	if cfg.GCS.Enabled {
		gcsStorage, err := storage.NewGCSStorage(ctx, cfg.GCS)
		if err != nil {
			log.Warn().Err(err).Msg("GCS unavailable, fallback files stay local")
		} else {
			a.gcs = gcsStorage
			fallbackOpts = append(fallbackOpts, storage.WithMirror(gcsStorage, gcsStorage.Bucket()))
		}
	}
	a.fallback = storage.NewFallbackWriter(cfg.Pipeline.ReportsDir, fallbackOpts...)

	// INITIATE NATS CLIENT
	if cfg.Nats.Enabled {
		broker, err := messaging.NewNatsBroker(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, run reports will not be published")
		} else {
			a.nats = broker
			publisher, err := messaging.NewIngestPublisher(ctx, broker, cfg.Nats.Subject)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to prepare ingest stream")
			} else {
				a.publisher = publisher
			}
		}
	}

	// run lock
	var store work.StateStore = work.NewMemoryStore()
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, run lock is process local")
		} else {
			a.redis = client
			store = work.NewRedisStore(client)
		}
	}
	a.manager = work.NewRunManager(store, cfg.Pipeline.RunTimeout+time.Minute)

	return a
}

// store returns the repository, or nil in fallback-only mode
func (a *app) store() services.DataSourceService {
	if a.db == nil {
		return nil
	}
	return services.NewDataSourceRepository(a.db.Pool)
}

// ingestService builds the pipeline for site
func (a *app) ingestService(site string) (*crawlers.IngestService, error) {
	svc, err := crawlers.NewServiceFor(cfg, site, a.driver, a.store(), a.fallback)
	if err != nil {
		return nil, err
	}
	if a.publisher != nil {
		svc.SetPublisher(a.publisher)
	}
	svc.SetLevelCounter(counter)
	return svc, nil
}

// healthDeps lists the pingable dependencies. Disabled ones stay untyped nil.
func (a *app) healthDeps() map[string]handler.Pinger {
	deps := map[string]handler.Pinger{"database": nil}
	if a.db != nil {
		deps["database"] = a.db
	}
	if cfg.Nats.Enabled {
		deps["nats"] = nil
		if a.nats != nil {
			deps["nats"] = a.nats
		}
	}
	if cfg.Redis.Enabled {
		deps["redis"] = nil
		if a.redis != nil {
			deps["redis"] = a.redis
		}
	}
	return deps
}

func (a *app) Close() {
	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close NATS connection")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close GCS client")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

/* run */

var runSite string

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one incremental scrape and ingest pass",
	Long: `Reads the watermark, scrapes the listing, keeps articles newer than the watermark
and persists them. Exits non-zero only when the run fails: the browser or page is
unavailable, or neither the database nor the fallback file could take the batch.`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	site := runSite
	if site == "" {
		site = cfg.Pipeline.Site
	}

	a := newApp(ctx)
	defer a.Close()

	svc, err := a.ingestService(site)
	if err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	runID := id.String()

	// Only a shared store can see other processes' runs
	locked := a.redis != nil
	if locked {
		if err := a.manager.Start(ctx, site, runID, constants.RunFromCLI); err != nil {
			if errors.Is(err, common.ErrRunInProgress) {
				log.Warn().Err(err).Str("site", site).Msg("Skipping run")
				return nil
			}
			return fmt.Errorf("failed to take run lock: %w", err)
		}
	}

	report, runErr := svc.RunWithID(ctx, runID)

	if locked {
		completeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.manager.Complete(completeCtx, site, report); err != nil {
			log.Warn().Err(err).Str("runID", runID).Msg("Failed to record run status")
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), crawlers.RunSummary(report))
	return runErr
}

/* migrate */

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "Create the data_source table and its indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cfg.PgSql.Configured() {
			return fmt.Errorf("%w: no database configured", common.ErrInvalidConfig)
		}

		dbConn, err := db.SetupDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		if err := db.Migrate(cmd.Context(), dbConn.Pool); err != nil {
			return err
		}
		log.Info().Msg("Schema is up to date")
		return nil
	},
}

/* sites */

var sitesCommand = &cobra.Command{
	Use:   "sites",
	Short: "List the registered site scrapers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range crawler.SiteNames() {
			site, err := crawler.GetSite(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, site.ListingURL())
		}
		return nil
	},
}

/* serve */

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run ingest passes on request",
	RunE:  serve,
}

// runStarter queues ingest runs on the dispatcher
type runStarter struct {
	app        *app
	dispatcher *work.Dispatcher
}

func (s *runStarter) StartRun(ctx context.Context, site string, trigger constants.ActionType) (string, error) {
	svc, err := s.app.ingestService(site)
	if err != nil {
		return "", err
	}
	return s.dispatcher.Submit(ctx, site, trigger, svc.RunWithID)
}

func serve(cmd *cobra.Command, _ []string) error {
	// Create a base context with cancel for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	a := newApp(ctx)
	defer a.Close()

	dispatcher, err := work.NewDispatcher(a.manager, runQueueSize, cfg.Pipeline.RunTimeout)
	if err != nil {
		return fmt.Errorf("failed to create run dispatcher: %w", err)
	}
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	starter := &runStarter{app: a, dispatcher: dispatcher}

	if a.nats != nil {
		consumer, err := messaging.ConsumeRunRequests(ctx, a.nats, func(ctx context.Context, req messaging.RunRequest) error {
			site := req.Site
			if site == "" {
				site = cfg.Pipeline.Site
			}
			_, err := starter.StartRun(ctx, site, req.Type)
			return err
		})
		if err != nil {
			log.Warn().Err(err).Msg("Run requests over NATS are disabled")
		} else {
			defer consumer.Stop()
		}
	}

	// INITIATE SERVER
	server, err := NewAppHttpServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create the server: %w", err)
	}

	// Inject dependencies
	if store := a.store(); store != nil {
		server.SetDataSources(store)
	}
	server.SetRuns(starter, a.manager)
	server.SetHealthDeps(a.healthDeps())

	server.setupRoute()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.start()
	}()

	log.Info().Str("address", cfg.Listen.Addr()).Msg("Server started successfully")
	log.Info().Str("swagger", fmt.Sprintf("http://%s/swagger/index.html", cfg.Listen.Addr())).Msg("Swagger documentation available at")

	// Wait for shutdown signal
	select {
	case <-shutdown:
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
		}
		return err
	}

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func init() {
	runCommand.Flags().StringVarP(&runSite, "site", "s", "", "Site to scrape (defaults to SCRAPER_SITE)")

	rootCmd.AddCommand(runCommand, migrateCommand, sitesCommand, serveCommand)
}
