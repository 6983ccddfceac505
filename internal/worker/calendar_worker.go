package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomsync/internal/database"
	"roomsync/internal/domain"
	"roomsync/internal/metrics"
	"roomsync/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// taskPayload is persisted in SyncTask.Payload as JSON. The reservation
// snapshot is for dead-letter inspection; processing always reloads current
// state from the database so a retry cannot resurrect stale data.
type taskPayload struct {
	ReservationID int64               `json:"reservation_id"`
	Reservation   *models.Reservation `json:"reservation,omitempty"`
}

// CalendarWorker is the reconciliation sweep: it drains sync_queue tasks
// left behind by failed synchronous attempts and replays them against the
// external calendar with bounded backoff.
type CalendarWorker struct {
	db            *database.DB
	calendar      domain.CalendarClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        zerolog.Logger
}

// NewCalendarWorker builds a worker with sane defaults. The retry policy may
// be a zero value; it falls back to the calendar-sync defaults on its own.
func NewCalendarWorker(db *database.DB, calendarClient domain.CalendarClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *CalendarWorker {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "calendar-worker").Logger()
	}

	return &CalendarWorker{
		db:            db,
		calendar:      calendarClient,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "calendar:queue",
		deadLetterKey: "calendar:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        log,
	}
}

// EnqueueTask persists the task to the durable queue and schedules it via
// redis or the in-memory channel.
func (w *CalendarWorker) EnqueueTask(ctx context.Context, operation string, r *models.Reservation) error {
	if operation == "" {
		return errors.New("operation is required")
	}
	if r == nil || r.ID == 0 {
		return errors.New("reservation id is required")
	}

	payloadBytes, err := json.Marshal(taskPayload{ReservationID: r.ID, Reservation: r})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		Operation:     operation,
		ReservationID: r.ID,
		Payload:       string(payloadBytes),
		Status:        models.SyncTaskPending,
		CreatedAt:     time.Now(),
	}

	if err := w.db.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first; DB polling picks the task up anyway if both the
	// redis push and the channel are unavailable.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}

	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *CalendarWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("calendar worker started")
	defer w.logger.Info().Msg("calendar worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *CalendarWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *CalendarWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *CalendarWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *CalendarWorker) processTask(ctx context.Context, task *models.SyncTask) {
	if err := w.handleTask(ctx, task); err != nil {
		metrics.IncSyncFailure(task.Operation)
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncSyncSuccess(task.Operation)
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncTaskCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
	w.recordOutcome(ctx, task, models.SyncTaskCompleted)
}

// recordOutcome appends the terminal result of a replayed task to the audit
// trail. Tasks still in the retry loop are not recorded.
func (w *CalendarWorker) recordOutcome(ctx context.Context, task *models.SyncTask, outcome string) {
	entry := &models.AuditEntry{
		Action:     models.AuditActionSyncResult,
		TargetType: "reservation",
		TargetID:   task.ReservationID,
		Metadata: map[string]interface{}{
			"operation":   task.Operation,
			"outcome":     outcome,
			"retry_count": task.RetryCount,
		},
	}
	if err := w.db.InsertAuditEntry(ctx, entry); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("audit sync outcome")
	}
}

// handleTask replays one operation against the current reservation state.
// A task whose work has become moot (reservation cancelled before the create
// ever reached the calendar, link already repaired) completes as a no-op.
func (w *CalendarWorker) handleTask(ctx context.Context, task *models.SyncTask) error {
	r, err := w.db.GetReservation(ctx, task.ReservationID)
	if err != nil {
		return fmt.Errorf("load reservation %d: %w", task.ReservationID, err)
	}

	room, err := w.db.GetRoomByID(ctx, r.RoomID)
	if err != nil {
		return fmt.Errorf("load room %d: %w", r.RoomID, err)
	}
	if room.CalendarAddress == "" {
		return nil
	}

	switch task.Operation {
	case models.SyncOpCreate:
		return w.replayCreate(ctx, room, r)
	case models.SyncOpPatch:
		return w.replayPatch(ctx, room, r)
	case models.SyncOpDelete:
		return w.replayDelete(ctx, room, r)
	default:
		return fmt.Errorf("unknown operation: %s", task.Operation)
	}
}

func (w *CalendarWorker) replayCreate(ctx context.Context, room *models.Room, r *models.Reservation) error {
	if r.Status == models.StatusCancelled || r.ExternalEventID != "" {
		return nil
	}
	link, err := w.calendar.CreateEvent(ctx, room.CalendarAddress, externalEvent(r))
	if err != nil {
		return err
	}
	return w.db.SetExternalLink(ctx, r.ID, link.EventID, link.RecurrenceUID)
}

func (w *CalendarWorker) replayPatch(ctx context.Context, room *models.Room, r *models.Reservation) error {
	if r.Status == models.StatusCancelled {
		return w.replayDelete(ctx, room, r)
	}
	if r.ExternalEventID == "" {
		// The create never landed; the patch collapses into a create.
		return w.replayCreate(ctx, room, r)
	}

	ev := externalEvent(r)
	patch := models.ExternalEventPatch{
		Subject:        &ev.Subject,
		Body:           &ev.Body,
		Start:          &ev.Start,
		End:            &ev.End,
		AttendeeEmails: &ev.AttendeeEmails,
	}
	return w.calendar.PatchEvent(ctx, room.CalendarAddress, r.ExternalEventID, &patch)
}

func (w *CalendarWorker) replayDelete(ctx context.Context, room *models.Room, r *models.Reservation) error {
	if r.ExternalEventID == "" {
		return nil
	}
	return w.calendar.DeleteEvent(ctx, room.CalendarAddress, r.ExternalEventID)
}

func externalEvent(r *models.Reservation) *models.ExternalEvent {
	emails := append([]string(nil), r.AttendeeEmails...)
	if r.ExternalEmail != "" {
		emails = append(emails, r.ExternalEmail)
	}
	return &models.ExternalEvent{
		Subject:        r.Title,
		Body:           r.Description,
		Start:          r.StartTime,
		End:            r.EndTime,
		AttendeeEmails: emails,
	}
}

func (w *CalendarWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.logger.Error().Err(cause).
			Int64("task_id", task.ID).
			Int64("reservation_id", task.ReservationID).
			Str("operation", task.Operation).
			Msg("sync task exhausted retries")
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncTaskFailed, cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
		}
		w.recordOutcome(ctx, task, models.SyncTaskFailed)
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	w.logger.Warn().Err(cause).
		Int64("task_id", task.ID).
		Int("attempt", attempt).
		Dur("next_delay", nextDelay).
		Msg("sync task retry scheduled")
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncTaskRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
}

func (w *CalendarWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *CalendarWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
