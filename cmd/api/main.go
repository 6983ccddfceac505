package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomsync/internal/api"
	"roomsync/internal/audit"
	"roomsync/internal/config"
	"roomsync/internal/database"
	"roomsync/internal/domain"
	"roomsync/internal/events"
	"roomsync/internal/google"
	"roomsync/internal/logging"
	"roomsync/internal/metrics"
	"roomsync/internal/models"
	"roomsync/internal/repository"
	"roomsync/internal/service"
	"roomsync/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	rooms, err := loadRooms(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, rooms, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	calendarClient := initCalendar(cfg, rooms, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The worker and the synchronous sync path share the durable queue;
	// without a calendar client there is nothing to replay.
	var syncWorker domain.SyncWorker
	if calendarClient != nil {
		calWorker := worker.NewCalendarWorker(db, calendarClient, redisClient, worker.RetryPolicy{}, &logger)
		go calWorker.Start(ctx)
		syncWorker = calWorker
	}

	var client domain.CalendarClient
	if calendarClient != nil {
		client = calendarClient
	}
	eventBus := events.NewEventBus()

	syncTimeout := time.Duration(cfg.Calendar.TimeoutSeconds) * time.Second
	synchronizer := service.NewCalendarSynchronizer(client, syncWorker, eventBus, syncTimeout, &logger)

	var oracle domain.AvailabilityOracle
	if cfg.Calendar.FreeBusyCheck && calendarClient != nil {
		oracle = synchronizer
	}

	auditRecorder := audit.NewRecorder(db, &logger)

	bookingService := service.NewBookingService(db, oracle, synchronizer, auditRecorder, eventBus, cfg.Booking.MaxBookingDays, &logger)
	roomService := service.NewRoomService(db, oracle, buildFreeBusyCache(redisClient, &logger), time.Duration(cfg.Booking.FreeBusyTTLSecs)*time.Second, &logger)
	userService := service.NewUserService(db, &logger)

	httpServer := api.NewHTTPServer(cfg.API, bookingService, roomService, userService, &logger)

	startMetrics(ctx, cfg, &logger)

	return serveHTTP(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadRooms prefers the room list embedded in the main config and falls back
// to a standalone rooms file.
func loadRooms(cfg *config.Config, logger *zerolog.Logger) ([]models.Room, error) {
	if len(cfg.Rooms) > 0 {
		return cfg.Rooms, nil
	}

	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath == "" {
		roomsPath = "configs/rooms.yaml"
	}
	data, err := os.ReadFile(roomsPath)
	if err != nil {
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("read rooms")
		return nil, err
	}

	var roomsConfig struct {
		Rooms []models.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(data, &roomsConfig); err != nil {
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("parse rooms")
		return nil, err
	}
	if err := config.ValidateRooms(roomsConfig.Rooms); err != nil {
		return nil, err
	}

	return roomsConfig.Rooms, nil
}

func initDatabase(cfg *config.Config, rooms []models.Room, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SeedRooms(context.Background(), rooms); err != nil {
		db.Close()
		logger.Error().Err(err).Msg("seed rooms")
		return nil, err
	}
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initCalendar(cfg *config.Config, rooms []models.Room, logger *zerolog.Logger) *google.CalendarService {
	if !cfg.Calendar.SyncEnabled || cfg.Calendar.CredentialsFile == "" {
		return nil
	}

	calendarService, err := google.NewCalendarService(cfg.Calendar.CredentialsFile)
	if err != nil {
		logger.Warn().Err(err).Msg("google calendar init failed, continuing without sync")
		return nil
	}

	// Probe against the first room that has a calendar; when no room is
	// linked there is nothing to reach and nothing to check.
	probeCalendar := firstCalendarAddress(rooms)
	if probeCalendar == "" {
		logger.Info().Msg("no room has a calendar address, skipping calendar probe")
		return calendarService
	}

	if err := calendarService.TestConnection(context.Background(), probeCalendar); err != nil {
		logger.Warn().Err(err).Str("calendar", probeCalendar).Msg("google calendar unreachable, continuing; worker will retry")
	} else {
		logger.Info().Str("calendar", probeCalendar).Msg("google calendar connected")
	}
	return calendarService
}

func firstCalendarAddress(rooms []models.Room) string {
	for _, room := range rooms {
		if room.IsActive && room.CalendarAddress != "" {
			return room.CalendarAddress
		}
	}
	return ""
}

// buildFreeBusyCache layers redis over the in-memory cache when redis is
// available so cache reads survive a redis outage.
func buildFreeBusyCache(redisClient *redis.Client, logger *zerolog.Logger) domain.FreeBusyCache {
	memory := repository.NewMemoryFreeBusyCache()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverFreeBusyCache(repository.NewRedisFreeBusyCache(redisClient), memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serveHTTP(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			logger.Warn().Msg("HTTP API disabled in config")
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("reservation API started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("reservation API stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
