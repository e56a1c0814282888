package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/config"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/services"
	"github.com/LexiconIndonesia/crypto-news-crawler/handler"
	"github.com/LexiconIndonesia/crypto-news-crawler/middlewares"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type AppHttpServer struct {
	router      *chi.Mux
	cfg         config.Config
	server      *http.Server
	dataSources services.DataSourceService
	starter     handler.RunStarter
	tracker     handler.RunTracker
	healthDeps  map[string]handler.Pinger
}

func NewAppHttpServer(cfg config.Config) (*AppHttpServer, error) {
	r := chi.NewRouter()

	// Basic CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-KEY"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(30 * time.Second))

	server := &AppHttpServer{
		router: r,
		cfg:    cfg,
	}
	return server, nil
}

// SetDataSources sets the repository behind /v1/datasources
func (s *AppHttpServer) SetDataSources(repo services.DataSourceService) {
	s.dataSources = repo
}

// SetRuns sets the run queue and status lookups behind /v1/runs
func (s *AppHttpServer) SetRuns(starter handler.RunStarter, tracker handler.RunTracker) {
	s.starter = starter
	s.tracker = tracker
}

// SetHealthDeps sets the dependencies probed by /v1/health/dependencies
func (s *AppHttpServer) SetHealthDeps(deps map[string]handler.Pinger) {
	s.healthDeps = deps
}

func (s *AppHttpServer) setupRoute() {
	r := s.router

	// Check if dependencies are set
	if s.dataSources == nil {
		log.Warn().Msg("Data source repository not set, /v1/datasources will answer 503")
	}

	if s.cfg.Security.BackendApiKey == "" {
		log.Warn().Msg("BACKEND_API_KEY is empty, /v1 is not protected")
	}

	// API Documentation with Swagger
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))

	// Public health endpoint (no authentication required)
	r.Mount("/health", handler.NewHealthHandler(s.healthDeps).Router())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middlewares.ApiKey(s.cfg.Security.BackendApiKey))

		// Handlers
		dataSourceHandler := handler.NewDataSourceHandler(s.dataSources, s.cfg.Pipeline.RecordType)
		runHandler := handler.NewRunHandler(s.starter, s.tracker, s.cfg.Pipeline.Site)

		r.Mount("/datasources", dataSourceHandler.Router())
		r.Mount("/runs", runHandler.Router())
		r.Mount("/health", handler.NewHealthHandler(s.healthDeps).Router())
	})

	log.Debug().Str("service", common.AppName).Msg("Routes registered")
}

func (s *AppHttpServer) start() error {
	r := s.router
	cfg := s.cfg
	log.Info().Msg("Starting up server...")

	s.server = &http.Server{
		Addr:         cfg.Listen.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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
