package models

import "time"

const (
	SyncOpCreate = "create"
	SyncOpPatch  = "patch"
	SyncOpDelete = "delete"
)

// SyncTask represents a queued calendar synchronization job.
type SyncTask struct {
	ID            int64      `json:"id"`
	Operation     string     `json:"operation"`
	ReservationID int64      `json:"reservation_id"`
	Payload       string     `json:"payload"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	LastError     *string    `json:"last_error"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
	NextRetryAt   *time.Time `json:"next_retry_at"`
}
