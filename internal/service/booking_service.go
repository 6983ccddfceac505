package service

import (
	"context"
	"strings"
	"time"

	"roomsync/internal/database"
	"roomsync/internal/domain"
	"roomsync/internal/events"
	"roomsync/internal/metrics"
	"roomsync/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo           domain.Repository
	oracle         domain.AvailabilityOracle
	syncer         domain.Synchronizer
	audit          domain.AuditRecorder
	eventBus       domain.EventPublisher
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	oracle domain.AvailabilityOracle,
	syncer domain.Synchronizer,
	audit domain.AuditRecorder,
	eventBus domain.EventPublisher,
	maxBookingDays int,
	logger *zerolog.Logger,
) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &BookingService{
		repo:           repo,
		oracle:         oracle,
		syncer:         syncer,
		audit:          audit,
		eventBus:       eventBus,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

// CreateReservation validates, conflict-checks and persists the reservation,
// then mirrors it to the external calendar best-effort. The reservation ends
// confirmed whether or not the sync succeeded; a failed sync only means
// external_event_id stays empty until the retry worker repairs it.
func (s *BookingService) CreateReservation(ctx context.Context, actor *models.User, req *models.Reservation) (*models.Reservation, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	req.Title = strings.TrimSpace(req.Title)
	req.StartTime = req.StartTime.UTC()
	req.EndTime = req.EndTime.UTC()

	if err := validateReservation(req); err != nil {
		return nil, err
	}
	if err := validateCreateTiming(req, s.maxBookingDays); err != nil {
		return nil, err
	}

	room, err := s.repo.GetRoomByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, database.ErrRoomInactive
	}

	// Fast-fail check; the insert re-checks inside its transaction.
	conflict, err := s.repo.FindConflict(ctx, room.ID, req.StartTime, req.EndTime, 0)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		metrics.IncConflict()
		s.logger.Info().
			Int64("room_id", room.ID).
			Int64("conflicting_id", conflict.ID).
			Msg("reservation conflict")
		return nil, database.ErrTimeSlotTaken
	}

	// Advisory external check: catches meetings booked directly in the
	// external calendar. Oracle errors read as free.
	if s.oracle != nil && !s.oracle.IsFree(ctx, room, req.StartTime, req.EndTime) {
		metrics.IncConflict()
		return nil, database.ErrTimeSlotTaken
	}

	req.RoomName = room.Name
	req.RequesterID = actor.ID
	req.RequesterName = actor.Name
	req.RequesterEmail = actor.Email
	req.Status = models.StatusPending
	req.CreatedBy = actor.ID
	req.UpdatedBy = actor.ID

	if err := s.repo.CreateReservationWithLock(ctx, req); err != nil {
		if err == database.ErrTimeSlotTaken {
			metrics.IncConflict()
		}
		return nil, err
	}

	if s.syncer != nil {
		if link := s.syncer.SyncCreate(ctx, room, req); link != nil {
			if err := s.repo.SetExternalLink(ctx, req.ID, link.EventID, link.RecurrenceUID); err != nil {
				s.logger.Error().Err(err).Int64("reservation_id", req.ID).Msg("store external link")
			} else {
				req.ExternalEventID = link.EventID
				req.ExternalRecurrenceUID = link.RecurrenceUID
			}
		}
	}

	// Pending -> confirmed is unconditional after the sync attempt.
	if err := s.repo.SetReservationStatus(ctx, req.ID, models.StatusConfirmed); err != nil {
		return nil, err
	}
	req.Status = models.StatusConfirmed

	metrics.IncReservationCreated()
	s.recordAudit(ctx, actor, models.AuditActionCreate, req)
	s.publishEvent(events.EventReservationCreated, req, actor)

	return req, nil
}

func (s *BookingService) GetReservation(ctx context.Context, actor *models.User, id int64) (*models.Reservation, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListReservations returns the caller's own reservations, optionally
// filtered by status and room.
func (s *BookingService) ListReservations(ctx context.Context, actor *models.User, status string, roomID int64) ([]*models.Reservation, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListReservations(ctx, database.ReservationFilter{
		RequesterID: actor.ID,
		RoomID:      roomID,
		Status:      status,
	})
}

func (s *BookingService) UpdateReservation(ctx context.Context, actor *models.User, id int64, update models.ReservationUpdate) (*models.Reservation, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	current, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, current); err != nil {
		return nil, err
	}
	if current.Status == models.StatusCancelled {
		return nil, database.ErrAlreadyCancelled
	}
	if update.Empty() {
		return current, nil
	}

	merged := update.Apply(*current)
	merged.Title = strings.TrimSpace(merged.Title)
	merged.StartTime = merged.StartTime.UTC()
	merged.EndTime = merged.EndTime.UTC()
	if err := validateReservation(&merged); err != nil {
		return nil, err
	}

	if update.ChangesInterval() {
		conflict, err := s.repo.FindConflict(ctx, merged.RoomID, merged.StartTime, merged.EndTime, merged.ID)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			metrics.IncConflict()
			return nil, database.ErrTimeSlotTaken
		}
	}

	merged.UpdatedBy = actor.ID
	if err := s.repo.UpdateReservationWithLock(ctx, &merged, current.Version); err != nil {
		if err == database.ErrTimeSlotTaken {
			metrics.IncConflict()
		}
		return nil, err
	}

	if s.syncer != nil && merged.ExternalEventID != "" {
		patch := buildEventPatch(current, &merged)
		if !patch.Empty() {
			if room, err := s.repo.GetRoomByID(ctx, merged.RoomID); err == nil {
				s.syncer.SyncPatch(ctx, room, &merged, patch)
			} else {
				s.logger.Error().Err(err).Int64("reservation_id", merged.ID).Msg("room lookup for sync patch")
			}
		}
	}

	s.recordAudit(ctx, actor, models.AuditActionUpdate, &merged)
	s.publishEvent(events.EventReservationUpdated, &merged, actor)

	return &merged, nil
}

func (s *BookingService) CancelReservation(ctx context.Context, actor *models.User, id int64) (*models.Reservation, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	current, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, current); err != nil {
		return nil, err
	}
	if current.Status == models.StatusCancelled {
		return nil, database.ErrAlreadyCancelled
	}

	if err := s.repo.CancelReservationWithVersion(ctx, id, current.Version, actor.ID); err != nil {
		return nil, err
	}

	if s.syncer != nil && current.ExternalEventID != "" {
		if room, err := s.repo.GetRoomByID(ctx, current.RoomID); err == nil {
			s.syncer.SyncDelete(ctx, room, current)
		} else {
			s.logger.Error().Err(err).Int64("reservation_id", current.ID).Msg("room lookup for sync delete")
		}
	}

	cancelled, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.IncReservationCancelled()
	s.recordAudit(ctx, actor, models.AuditActionCancel, cancelled)
	s.publishEvent(events.EventReservationCancelled, cancelled, actor)

	return cancelled, nil
}

func (s *BookingService) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	return s.repo.GetReservationsByDateRange(ctx, start, end)
}

// authorize permits the original requester and administrators.
func authorize(actor *models.User, r *models.Reservation) error {
	if actor.IsAdmin() || actor.ID == r.RequesterID {
		return nil
	}
	return ErrForbidden
}

// buildEventPatch compares before/after and keeps only changed fields, so
// the external patch call carries a minimal body.
func buildEventPatch(before, after *models.Reservation) models.ExternalEventPatch {
	var patch models.ExternalEventPatch
	if before.Title != after.Title {
		patch.Subject = &after.Title
	}
	if before.Description != after.Description {
		patch.Body = &after.Description
	}
	if !before.StartTime.Equal(after.StartTime) {
		patch.Start = &after.StartTime
	}
	if !before.EndTime.Equal(after.EndTime) {
		patch.End = &after.EndTime
	}
	if !equalStrings(before.AttendeeEmails, after.AttendeeEmails) {
		patch.AttendeeEmails = &after.AttendeeEmails
	}
	return patch
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *BookingService) recordAudit(ctx context.Context, actor *models.User, action string, r *models.Reservation) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, actor, action, r.ID, map[string]interface{}{
		"room_id":    r.RoomID,
		"status":     r.Status,
		"start_time": r.StartTime,
		"end_time":   r.EndTime,
	})
}

func (s *BookingService) publishEvent(eventType string, r *models.Reservation, actor *models.User) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID:   r.ID,
		RoomID:          r.RoomID,
		RoomName:        r.RoomName,
		RequesterID:     r.RequesterID,
		Status:          r.Status,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		ExternalEventID: r.ExternalEventID,
		ChangedByID:     actor.ID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}
