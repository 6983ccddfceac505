package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "reservations_created_total",
			Help:      "Reservations confirmed locally.",
		},
	)

	reservationsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "reservations_cancelled_total",
			Help:      "Reservations moved to the terminal cancelled state.",
		},
	)

	conflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "reservation_conflicts_total",
			Help:      "Booking attempts rejected by conflict detection.",
		},
	)

	syncAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "calendar_sync_attempts_total",
			Help:      "External calendar sync attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationsCreated, reservationsCancelled, conflicts, syncAttempts)
	})
}

// IncHTTP increments the counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncReservationCancelled() {
	reservationsCancelled.Inc()
}

func IncConflict() {
	conflicts.Inc()
}

func IncSyncSuccess(operation string) {
	syncAttempts.WithLabelValues(operation, "success").Inc()
}

func IncSyncFailure(operation string) {
	syncAttempts.WithLabelValues(operation, "failure").Inc()
}
