package service

import (
	"context"
	"time"

	"roomsync/internal/domain"
	"roomsync/internal/events"
	"roomsync/internal/metrics"
	"roomsync/internal/models"

	"github.com/rs/zerolog"
)

// CalendarSynchronizer performs the synchronous best-effort sync attempt
// during a booking operation. Every call is time-bounded so a slow external
// service cannot stall confirmation; failures are logged with enough
// context for reconciliation and handed to the retry worker.
type CalendarSynchronizer struct {
	client  domain.CalendarClient
	worker  domain.SyncWorker
	bus     domain.EventPublisher
	timeout time.Duration
	logger  zerolog.Logger
}

func NewCalendarSynchronizer(client domain.CalendarClient, worker domain.SyncWorker, bus domain.EventPublisher, timeout time.Duration, logger *zerolog.Logger) *CalendarSynchronizer {
	if timeout <= 0 {
		timeout = models.DefaultSyncTimeoutSeconds * time.Second
	}
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "calendar-sync").Logger()
	}
	return &CalendarSynchronizer{
		client:  client,
		worker:  worker,
		bus:     bus,
		timeout: timeout,
		logger:  log,
	}
}

// SyncCreate mirrors a new reservation into the room's external calendar.
// Returns nil when the room has no calendar address, the integration is off,
// or the call failed; the caller treats all three the same way.
func (s *CalendarSynchronizer) SyncCreate(ctx context.Context, room *models.Room, r *models.Reservation) *models.ExternalLink {
	if s.client == nil || room.CalendarAddress == "" {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	link, err := s.client.CreateEvent(callCtx, room.CalendarAddress, EventFromReservation(r))
	if err != nil {
		metrics.IncSyncFailure(models.SyncOpCreate)
		s.logger.Error().Err(err).
			Int64("reservation_id", r.ID).
			Str("calendar", room.CalendarAddress).
			Str("operation", models.SyncOpCreate).
			Msg("external calendar sync failed")
		s.enqueue(ctx, models.SyncOpCreate, r)
		s.publishOutcome(models.SyncOpCreate, r, err)
		return nil
	}

	metrics.IncSyncSuccess(models.SyncOpCreate)
	s.publishOutcome(models.SyncOpCreate, r, nil)
	return link
}

// SyncPatch applies a partial update to the mirrored event.
func (s *CalendarSynchronizer) SyncPatch(ctx context.Context, room *models.Room, r *models.Reservation, patch models.ExternalEventPatch) {
	if s.client == nil || room.CalendarAddress == "" || r.ExternalEventID == "" || patch.Empty() {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.PatchEvent(callCtx, room.CalendarAddress, r.ExternalEventID, &patch); err != nil {
		metrics.IncSyncFailure(models.SyncOpPatch)
		s.logger.Error().Err(err).
			Int64("reservation_id", r.ID).
			Str("calendar", room.CalendarAddress).
			Str("event_id", r.ExternalEventID).
			Str("operation", models.SyncOpPatch).
			Msg("external calendar sync failed")
		s.enqueue(ctx, models.SyncOpPatch, r)
		s.publishOutcome(models.SyncOpPatch, r, err)
		return
	}

	metrics.IncSyncSuccess(models.SyncOpPatch)
	s.publishOutcome(models.SyncOpPatch, r, nil)
}

// SyncDelete removes the mirrored event after cancellation.
func (s *CalendarSynchronizer) SyncDelete(ctx context.Context, room *models.Room, r *models.Reservation) {
	if s.client == nil || room.CalendarAddress == "" || r.ExternalEventID == "" {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.DeleteEvent(callCtx, room.CalendarAddress, r.ExternalEventID); err != nil {
		metrics.IncSyncFailure(models.SyncOpDelete)
		s.logger.Error().Err(err).
			Int64("reservation_id", r.ID).
			Str("calendar", room.CalendarAddress).
			Str("event_id", r.ExternalEventID).
			Str("operation", models.SyncOpDelete).
			Msg("external calendar sync failed")
		s.enqueue(ctx, models.SyncOpDelete, r)
		s.publishOutcome(models.SyncOpDelete, r, err)
		return
	}

	metrics.IncSyncSuccess(models.SyncOpDelete)
	s.publishOutcome(models.SyncOpDelete, r, nil)
}

// IsFree implements the advisory availability oracle. A call error reads as
// "free": the oracle is never a blocking dependency for local consistency.
func (s *CalendarSynchronizer) IsFree(ctx context.Context, room *models.Room, start, end time.Time) bool {
	if s.client == nil || room.CalendarAddress == "" {
		return true
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	free, err := s.client.IsFree(callCtx, room.CalendarAddress, start, end)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("calendar", room.CalendarAddress).
			Msg("free/busy check failed, assuming free")
		return true
	}
	return free
}

// publishOutcome reports the result of one sync attempt on the event bus.
func (s *CalendarSynchronizer) publishOutcome(operation string, r *models.Reservation, cause error) {
	if s.bus == nil {
		return
	}

	payload := events.SyncEventPayload{
		ReservationID: r.ID,
		Operation:     operation,
	}
	eventType := events.EventSyncCompleted
	if cause != nil {
		eventType = events.EventSyncFailed
		payload.Error = cause.Error()
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("operation", operation).Msg("publish sync event")
	}
}

func (s *CalendarSynchronizer) enqueue(ctx context.Context, operation string, r *models.Reservation) {
	if s.worker == nil {
		return
	}
	if err := s.worker.EnqueueTask(ctx, operation, r); err != nil {
		s.logger.Error().Err(err).
			Int64("reservation_id", r.ID).
			Str("operation", operation).
			Msg("enqueue sync retry")
	}
}

// EventFromReservation builds the full external event body for create and
// retry paths.
func EventFromReservation(r *models.Reservation) *models.ExternalEvent {
	return &models.ExternalEvent{
		Subject:        r.Title,
		Body:           r.Description,
		Start:          r.StartTime,
		End:            r.EndTime,
		AttendeeEmails: attendeesWithExternal(r),
	}
}

func attendeesWithExternal(r *models.Reservation) []string {
	emails := append([]string(nil), r.AttendeeEmails...)
	if r.ExternalEmail != "" {
		emails = append(emails, r.ExternalEmail)
	}
	return emails
}
