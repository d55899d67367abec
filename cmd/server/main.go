package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spiritlens/backend/config"
	httpDelivery "github.com/spiritlens/backend/internal/delivery/http"
	"github.com/spiritlens/backend/internal/infrastructure/cache"
	"github.com/spiritlens/backend/internal/infrastructure/metrics"
	"github.com/spiritlens/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting SpiritLens backend",
		zap.String("version", httpDelivery.Version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_type", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
	)

	// Initialize infrastructure dependencies
	store, err := cache.New(ctx, cfg.Cache.Type, cfg.Cache.RedisURL, logger.Named("cache"))
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer store.Close()

	// Initialize usecase layer
	dedupCfg, err := cfg.DedupService()
	if err != nil {
		return err
	}
	dedup, err := usecase.NewDedupService(dedupCfg, nil, nil, store, logger.Named("dedup"),
		usecase.WithRecorder(metrics.NewRecorder()),
	)
	if err != nil {
		return fmt.Errorf("init dedup service: %w", err)
	}

	logger.Info("dedup engine configured",
		zap.Strings("strategies", cfg.Blocking.EnabledStrategies),
		zap.Float64("name_threshold", cfg.Scoring.NameThreshold),
		zap.Float64("auto_merge_threshold", cfg.Scoring.AutoMergeThreshold),
		zap.Int("rate_limit_per_ip", cfg.RateLimit.PerIP),
	)

	// Create HTTP handler with dependencies and setup router
	handler := httpDelivery.NewHandler(dedup, logger.Named("http"))
	router := httpDelivery.SetupRouter(cfg, handler, logger.Named("http"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
