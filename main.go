package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/config"
	"github.com/seclab-kr/blacklist-collector/common/credentials"
	"github.com/seclab-kr/blacklist-collector/common/db"
	"github.com/seclab-kr/blacklist-collector/common/geoip"
	"github.com/seclab-kr/blacklist-collector/common/logger"
	"github.com/seclab-kr/blacklist-collector/common/messaging"
	"github.com/seclab-kr/blacklist-collector/common/services"
	"github.com/seclab-kr/blacklist-collector/common/storage"
	"github.com/seclab-kr/blacklist-collector/common/work"
	"github.com/seclab-kr/blacklist-collector/scheduler"

	"github.com/rs/zerolog/log"

	"github.com/joho/godotenv"

	_ "github.com/seclab-kr/blacklist-collector/collectors/publicfeed"
	_ "github.com/seclab-kr/blacklist-collector/collectors/regtech"
	_ "github.com/seclab-kr/blacklist-collector/collectors/secudium"
	_ "github.com/seclab-kr/blacklist-collector/docs"
)

// @title          Blacklist Collector API
// @version        1.0
// @description    Threat intelligence blacklist collection service
// @termsOfService http://swagger.io/terms/

// @contact.name  API Support
// @contact.url   http://www.example.com/support
// @contact.email support@example.com

// @license.name Apache 2.0
// @license.url  http://www.apache.org/licenses/LICENSE-2.0.html

// @host     localhost:8080
// @BasePath /
// @schemes  http https

// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-KEY

func main() {
	// INITIATE CONFIGURATION
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file, using environment variables")
	}

	cfg := config.DefaultConfig()
	cfg.LoadFromEnv()

	// Create a base context with cancel for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// INITIATE DATABASES
	dbConn, err := db.SetupDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup database")
	}
	defer dbConn.Close()

	// Initialize zerolog database hooks
	logger.InitializeLogging(dbConn)
	log.Info().Msg("Zerolog database hooks initialized")

	// INITIATE NATS CLIENT
	natsClient, err := messaging.SetupNatsBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to setup NATS client")
	}
	defer natsClient.Close()

	// Raw payload archiving is optional; without a bucket the archiver is a
	// no-op and runs proceed without evidence copies.
	var payloadStorage storage.StorageService
	if cfg.GCS.Bucket != "" {
		payloadStorage, err = storage.NewGCSStorage(ctx, storage.GCSConfig{
			ProjectID:       cfg.GCS.ProjectID,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to setup GCS storage")
		}
	}
	archiver := storage.NewArchiver(payloadStorage, cfg.GCS.Bucket)

	geoResolver, err := geoip.NewResolver(cfg.GeoIP.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open GeoIP database")
	}
	defer geoResolver.Close()

	// INITIATE COLLECTION PIPELINE
	credStore := credentials.NewEnvStore()
	gate := work.NewRunManager(dbConn.Redis)

	blacklistRepo := services.NewBlacklistRepository(dbConn)
	runsRepo := services.NewCollectionRunRepository(dbConn)
	logService := logger.NewLogService(dbConn)

	runner := collector.NewRunner(blacklistRepo, runsRepo, logService, geoResolver, gate, natsClient)

	// The factory re-reads the environment so a scheduler restart picks up
	// rotated portal credentials without a process restart.
	buildCollectors := func() (map[string]collector.Collector, error) {
		fresh := config.DefaultConfig()
		fresh.LoadFromEnv()
		return collector.Build(fresh, collector.Deps{
			DB:          dbConn,
			Broker:      natsClient,
			Credentials: credStore,
			Archiver:    archiver,
			GeoIP:       geoResolver,
		})
	}

	sched, err := scheduler.New(runner, collector.NewStateTracker(), natsClient, gate, cfg.Collection.CheckInterval(), buildCollectors)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	log.Info().Msg("Collection scheduler started")

	// INITIATE SERVER
	server, err := NewAppHttpServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create the server")
	}

	// Inject dependencies
	server.SetDB(dbConn)
	server.SetNatsClient(natsClient)
	server.SetScheduler(sched)

	// Setup routes
	server.setupRoute()

	// Start server in a goroutine
	go func() {
		if err := server.start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			cancel()
		}
	}()

	log.Info().Str("address", cfg.Listen.Addr()).Msg("Server started successfully")
	log.Info().Str("swagger", fmt.Sprintf("http://%s/swagger/index.html", cfg.Listen.Addr())).Msg("Swagger documentation available at")

	// Wait for shutdown signal
	<-shutdown
	log.Info().Msg("Shutdown signal received")

	sched.Stop()
	log.Info().Msg("Collection scheduler stopped")

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server gracefully stopped")
}
