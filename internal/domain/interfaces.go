package domain

import (
	"context"
	"time"

	"roomsync/internal/database"
	"roomsync/internal/models"
)

type Repository interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CreateReservationWithLock(ctx context.Context, r *models.Reservation) error
	UpdateReservationWithLock(ctx context.Context, r *models.Reservation, fromVersion int64) error
	CancelReservationWithVersion(ctx context.Context, id, fromVersion, updatedBy int64) error
	SetReservationStatus(ctx context.Context, id int64, status string) error
	SetExternalLink(ctx context.Context, id int64, eventID, recurrenceUID string) error
	FindConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, filter database.ReservationFilter) ([]*models.Reservation, error)
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)

	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
	GetRoomByName(ctx context.Context, name string) (*models.Room, error)
	GetActiveRooms(ctx context.Context) ([]*models.Room, error)

	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)

	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error

	InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error
}

// CalendarClient talks to the external calendar system. Implementations
// must honor ctx deadlines; every call crosses the network.
type CalendarClient interface {
	CreateEvent(ctx context.Context, calendarID string, event *models.ExternalEvent) (*models.ExternalLink, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, patch *models.ExternalEventPatch) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	IsFree(ctx context.Context, calendarID string, start, end time.Time) (bool, error)
}

// Synchronizer mirrors reservation lifecycle changes into the external
// calendar. All methods are best-effort: failures are logged and queued for
// retry, never returned to the business operation.
type Synchronizer interface {
	SyncCreate(ctx context.Context, room *models.Room, r *models.Reservation) *models.ExternalLink
	SyncPatch(ctx context.Context, room *models.Room, r *models.Reservation, patch models.ExternalEventPatch)
	SyncDelete(ctx context.Context, room *models.Room, r *models.Reservation)
}

// AvailabilityOracle answers an advisory free/busy question against the
// external calendar. Errors and missing configuration both read as "free";
// local conflict detection stays authoritative.
type AvailabilityOracle interface {
	IsFree(ctx context.Context, room *models.Room, start, end time.Time) bool
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, operation string, r *models.Reservation) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AuditRecorder never reports failure back to the caller; audit problems
// must not abort a business operation.
type AuditRecorder interface {
	Record(ctx context.Context, actor *models.User, action string, targetID int64, metadata map[string]interface{})
}

type FreeBusyCache interface {
	Get(ctx context.Context, key string) (free bool, found bool, err error)
	Set(ctx context.Context, key string, free bool, ttl time.Duration) error
}

type BookingService interface {
	CreateReservation(ctx context.Context, actor *models.User, req *models.Reservation) (*models.Reservation, error)
	GetReservation(ctx context.Context, actor *models.User, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, actor *models.User, status string, roomID int64) ([]*models.Reservation, error)
	UpdateReservation(ctx context.Context, actor *models.User, id int64, update models.ReservationUpdate) (*models.Reservation, error)
	CancelReservation(ctx context.Context, actor *models.User, id int64) (*models.Reservation, error)
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
}

type RoomService interface {
	GetActiveRooms(ctx context.Context) ([]*models.Room, error)
	GetRoomByName(ctx context.Context, name string) (*models.Room, error)
	CheckAvailability(ctx context.Context, room *models.Room, start, end time.Time) (*models.RoomAvailability, error)
}

type UserService interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
}
