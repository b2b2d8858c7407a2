package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrimech/manuals-qa/internal/config"
	"github.com/agrimech/manuals-qa/internal/database"
	"github.com/agrimech/manuals-qa/internal/gemini"
	"github.com/agrimech/manuals-qa/internal/handlers"
	"github.com/agrimech/manuals-qa/internal/manuals"
	"github.com/agrimech/manuals-qa/internal/qacache"
	"github.com/agrimech/manuals-qa/internal/storage"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		DBName:            cfg.PostgresDatabase,
		SSLMode:           cfg.PostgresSSLMode,
		ConnectRetries:    cfg.PostgresConnectRetries,
		ConnectRetryDelay: cfg.PostgresConnectRetryDelay,
	})
	if err != nil {
		logger.WithError(err).Fatal("Database setup failed")
	}

	cacheStore := qacache.NewGormStore(db)
	matcher := qacache.NewMatcher(logger, cacheStore, cfg.SimilarityThreshold, cfg.SimilarityScanLimit)
	cacheService := qacache.NewService(logger, cacheStore, matcher)

	manualStore := manuals.NewGormStore(db)
	llmClient := gemini.NewClient(logger, cfg)

	var archive storage.Archive
	if cfg.ArchiveEnabled() {
		archive = storage.NewS3Archive(cfg)
	}

	qaHandler := handlers.NewQAHandler(logger, cfg, cacheService, manualStore, llmClient)
	ingestHandler := handlers.NewIngestHandler(logger, cfg, manualStore, archive)
	authHandler := handlers.NewAuthHandler(logger, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	purger := qacache.NewPurger(logger, cacheService, cfg.PurgeInterval)
	go purger.Start(ctx)
	go handlers.CleanupClients(ctx)

	r := mux.NewRouter()
	r.Use(handlers.RecoverMiddleware(logger))
	r.Use(handlers.LoggingMiddleware(logger, db))
	r.Use(handlers.RateLimitMiddleware(cfg))
	handlers.RegisterRoutes(r, qaHandler, ingestHandler, authHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.WithField("addr", server.Addr).Info("Starting server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Server failed")
	}
}
