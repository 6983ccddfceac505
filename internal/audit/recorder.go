package audit

import (
	"context"
	"time"

	"roomsync/internal/domain"
	"roomsync/internal/models"

	"github.com/rs/zerolog"
)

// Recorder appends state transitions to the audit log. It deliberately never
// returns an error: a broken audit path must not abort the business
// operation that triggered it. Failures are logged on a separate channel.
type Recorder struct {
	repo    domain.Repository
	timeout time.Duration
	logger  zerolog.Logger
}

func NewRecorder(repo domain.Repository, logger *zerolog.Logger) *Recorder {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "audit").Logger()
	}
	return &Recorder{
		repo:    repo,
		timeout: 5 * time.Second,
		logger:  log,
	}
}

func (r *Recorder) Record(ctx context.Context, actor *models.User, action string, targetID int64, metadata map[string]interface{}) {
	entry := &models.AuditEntry{
		Action:     action,
		TargetType: "reservation",
		TargetID:   targetID,
		Metadata:   metadata,
	}
	if actor != nil {
		entry.ActorID = actor.ID
		entry.ActorName = actor.Name
	}

	// The entry must land even if the request context is already cancelled.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.repo.InsertAuditEntry(writeCtx, entry); err != nil {
		r.logger.Error().Err(err).
			Str("action", action).
			Int64("target_id", targetID).
			Msg("audit write failed")
	}
}
