package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomsync/internal/config"
	"roomsync/internal/domain"
	"roomsync/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the reservation API over HTTP.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings domain.BookingService
	rooms    domain.RoomService
	auth     *HTTPAuth
	server   *http.Server
	logger   zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings domain.BookingService, rooms domain.RoomService, users domain.UserService, logger *zerolog.Logger) *HTTPServer {
	log := logger.With().Str("component", "http-api").Logger()

	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, bookings: bookings, rooms: rooms, logger: log}
	srv.auth = NewHTTPAuth(cfg, users, logger)

	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationSubpath)
	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/rooms/", srv.handleRoomSubpath)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler; used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("x-request-id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("x-request-id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := metricsEndpoint(r.URL.Path)
		metrics.IncHTTP(endpoint, strconv.Itoa(recorder.status))
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// metricsEndpoint collapses paths with embedded ids so the endpoint label
// stays low-cardinality.
func metricsEndpoint(path string) string {
	switch {
	case path == "/api/v1/reservations":
		return "reservations"
	case path == "/api/v1/reservations/export":
		return "reservations_export"
	case strings.HasSuffix(path, "/cancel"):
		return "reservation_cancel"
	case strings.HasPrefix(path, "/api/v1/reservations/"):
		return "reservation"
	case path == "/api/v1/rooms":
		return "rooms"
	case strings.HasPrefix(path, "/api/v1/rooms/"):
		return "room_availability"
	default:
		return "unknown"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
