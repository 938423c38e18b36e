package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/config"
	"github.com/UkralStul/optimistic-updates/internal/httpapi"
	"github.com/UkralStul/optimistic-updates/internal/metrics"
	"github.com/UkralStul/optimistic-updates/internal/remote"
	"github.com/UkralStul/optimistic-updates/internal/simulate"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"github.com/UkralStul/optimistic-updates/internal/storage/inmemory"
	"github.com/UkralStul/optimistic-updates/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	storageType := flag.String("storage", "", "Storage type (in-memory or postgres), overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *storageType != "" {
		cfg.Storage = *storageType
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", zap.String("storage", cfg.Storage))
	var store storage.Storage
	if cfg.Storage == config.StoragePostgres {
		store, err = postgres.New(cfg.DatabaseURL, cfg.Debug)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
	} else {
		mem := inmemory.New()
		seeded, err := remote.Seed(ctx, mem, cfg.MockItems)
		if err != nil {
			logger.Fatal("failed to fill mock data", zap.Error(err))
		}
		logger.Info("mock data filled",
			zap.String("wall_post_id", seeded.WallPostID),
			zap.String("disabled_post_id", seeded.DisabledPostID),
			zap.Int("items", cfg.MockItems))
		store = mem
	}

	hub := httpapi.NewHub(logger.Named("hub"))
	opts := []remote.Option{remote.WithPublisher(hub), remote.WithLogger(logger.Named("backend"))}
	if cfg.Seed != 0 {
		opts = append(opts, remote.WithInjector(simulate.NewInjector(cfg.Seed)))
	}
	backend := remote.NewBackend(store, cfg.Policies, opts...)

	srv := httpapi.NewServer(httpapi.Config{
		Service: backend,
		Store:   store,
		Hub:     hub,
		Metrics: metrics.NewCollector("optimistic"),

		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", "http://localhost:"+cfg.Port))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed to start", zap.Error(err))
	}
}
