package models

import "time"

const (
	AuditActionCreate     = "reservation.create"
	AuditActionUpdate     = "reservation.update"
	AuditActionCancel     = "reservation.cancel"
	AuditActionSyncResult = "reservation.sync"
)

// AuditEntry is one append-only record of a state transition.
type AuditEntry struct {
	ID         int64                  `json:"id"`
	ActorID    int64                  `json:"actor_id"`
	ActorName  string                 `json:"actor_name"`
	Action     string                 `json:"action"`
	TargetType string                 `json:"target_type"`
	TargetID   int64                  `json:"target_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
