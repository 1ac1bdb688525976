package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/seclab-kr/blacklist-collector/common/config"
	"github.com/seclab-kr/blacklist-collector/common/db"
	"github.com/seclab-kr/blacklist-collector/common/logger"
	"github.com/seclab-kr/blacklist-collector/common/messaging"
	"github.com/seclab-kr/blacklist-collector/common/services"
	"github.com/seclab-kr/blacklist-collector/handler"
	"github.com/seclab-kr/blacklist-collector/middlewares"
	"github.com/seclab-kr/blacklist-collector/scheduler"
)

type AppHttpServer struct {
	router     *chi.Mux
	cfg        config.Config
	server     *http.Server
	db         *db.DB
	natsClient *messaging.NatsBroker
	sched      *scheduler.Scheduler
}

func NewAppHttpServer(cfg config.Config) (*AppHttpServer, error) {
	r := chi.NewRouter()

	// Basic CORS
	// for more ideas, see: https://developer.github.com/v3/#cross-origin-resource-sharing
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-API-KEY", "X-ACCESS-TIME", "X-REQUEST-SIGNATURE", "X-API-USER", "X-REQUEST-IDENTITY"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Force-collection runs synchronously inside the request, so the
	// request timeout must cover a full collection run.
	r.Use(middleware.Timeout(11 * time.Minute))

	server := &AppHttpServer{
		router: r,
		cfg:    cfg,
	}
	return server, nil
}

// SetDB sets the database dependency
func (s *AppHttpServer) SetDB(db *db.DB) {
	s.db = db
}

// SetNatsClient sets the NATS client dependency
func (s *AppHttpServer) SetNatsClient(client *messaging.NatsBroker) {
	s.natsClient = client
}

// SetScheduler sets the collection scheduler dependency
func (s *AppHttpServer) SetScheduler(sched *scheduler.Scheduler) {
	s.sched = sched
}

func (s *AppHttpServer) setupRoute() {
	r := s.router
	cfg := s.cfg

	if s.db == nil {
		log.Warn().Msg("DB dependency not set")
	}
	if s.sched == nil {
		log.Warn().Msg("Scheduler dependency not set")
	}

	blacklistRepo := services.NewBlacklistRepository(s.db)
	whitelistRepo := services.NewWhitelistRepository(s.db)
	runsRepo := services.NewCollectionRunRepository(s.db)
	logService := logger.NewLogService(s.db)

	schedulerHandler := handler.NewSchedulerHandler(s.sched, blacklistRepo)
	blacklistHandler := handler.NewBlacklistHandler(blacklistRepo)
	whitelistHandler := handler.NewWhitelistHandler(whitelistRepo)
	collectionHandler := handler.NewCollectionHandler(runsRepo, logService)
	healthHandler := handler.NewHealthHandler(s.db)

	// API Documentation with Swagger
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))

	// Public surfaces: liveness probes and the monitoring status poll need
	// no credentials.
	r.Mount("/health", healthHandler.Router())
	r.Get("/status", schedulerHandler.HandleStatus)

	r.Route("/api", func(r chi.Router) {
		// A deployment without a backend key runs open, for local and
		// lab use.
		if cfg.Security.BackendApiKey != "" {
			r.Use(middlewares.ApiKey(cfg.Security.BackendApiKey, cfg.Security.ServerSalt))
		}

		// Read surfaces keep a static header requirement so firewall
		// pulls can authenticate with a fixed configuration.
		r.Mount("/blacklist", blacklistHandler.Router())
		r.Mount("/collection", collectionHandler.Router())

		// Mutating surfaces additionally require signed, fresh requests.
		r.Group(func(r chi.Router) {
			if cfg.Security.ServerSalt != "" {
				r.Use(middlewares.AccessTime())
				r.Use(middlewares.RequestSignature(cfg.Security.ServerSalt))
			}
			r.Mount("/scheduler", schedulerHandler.Router())
			r.Mount("/whitelist", whitelistHandler.Router())
		})
	})
}

func (s *AppHttpServer) start() error {
	r := s.router
	cfg := s.cfg
	log.Info().Msg("Starting up server...")

	s.server = &http.Server{
		Addr:        cfg.Listen.Addr(),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Write timeout must outlast a synchronous force-collection run.
		WriteTimeout: 11 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// This starts the server in a goroutine from main
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// stop gracefully shuts down the server
func (s *AppHttpServer) stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
