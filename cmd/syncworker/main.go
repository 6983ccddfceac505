package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"roomsync/internal/config"
	"roomsync/internal/database"
	"roomsync/internal/google"
	"roomsync/internal/logging"
	"roomsync/internal/worker"

	"github.com/redis/go-redis/v9"
)

// Standalone reconciliation worker. Runs the same replay loop the API binary
// embeds, for deployments that keep the sweep out of the serving process.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "syncworker-main").Logger()

	if !cfg.Calendar.SyncEnabled || cfg.Calendar.CredentialsFile == "" {
		return errors.New("calendar sync is not configured; nothing to reconcile")
	}

	calendarClient, err := google.NewCalendarService(cfg.Calendar.CredentialsFile)
	if err != nil {
		return fmt.Errorf("init calendar client: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calWorker := worker.NewCalendarWorker(db, calendarClient, redisClient, worker.RetryPolicy{}, &logger)
	logger.Info().Msg("reconciliation worker started")
	calWorker.Start(ctx)
	logger.Info().Msg("reconciliation worker stopped")
	return nil
}
