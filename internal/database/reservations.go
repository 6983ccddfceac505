package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"roomsync/internal/models"
)

const reservationColumns = `id, room_id, room_name, requester_id, requester_name, requester_email,
                 title, description, start_time, end_time, status, attendee_emails,
                 external_email, external_event_id, external_recurrence_uid,
                 created_by, updated_by, created_at, updated_at, cancelled_at, version`

// conflictQuery is the half-open interval predicate: [s, e) intersects
// [s', e') iff s' < e AND s < e'. Touching intervals do not conflict.
const conflictQuery = `SELECT ` + reservationColumns + ` FROM reservations
              WHERE room_id = ? AND status IN (?, ?) AND id != ?
                AND start_time < ? AND ? < end_time
              ORDER BY start_time ASC LIMIT 1`

// FindConflict returns the first active reservation on the room whose
// interval intersects [start, end), excluding excludeID. Returns nil when
// the slot is free. This is the fast-fail check; CreateReservationWithLock
// repeats it inside the write transaction.
func (db *DB) FindConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, conflictQuery,
		roomID, models.StatusPending, models.StatusConfirmed, excludeID,
		end.UTC(), start.UTC())

	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find conflict: %w", err)
	}
	return r, nil
}

// CreateReservationWithLock runs the conflict check and the insert inside a
// single transaction so two concurrent requests for overlapping intervals
// cannot both commit. SQLite serializes write transactions, which makes the
// in-tx re-check authoritative.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, conflictQuery,
		r.RoomID, models.StatusPending, models.StatusConfirmed, int64(0),
		r.EndTime.UTC(), r.StartTime.UTC())
	if _, err := scanReservation(row); err == nil {
		return ErrTimeSlotTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check conflict in tx: %w", err)
	}

	attendees, err := encodeAttendees(r.AttendeeEmails)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `INSERT INTO reservations (
                room_id, room_name, requester_id, requester_name, requester_email,
                title, description, start_time, end_time, status, attendee_emails,
                external_email, external_event_id, external_recurrence_uid,
                created_by, updated_by, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RoomID, r.RoomName, r.RequesterID, r.RequesterName, r.RequesterEmail,
		r.Title, r.Description, r.StartTime.UTC(), r.EndTime.UTC(), r.Status, attendees,
		r.ExternalEmail, r.ExternalEventID, r.ExternalRecurrenceUID,
		r.CreatedBy, r.UpdatedBy, now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	return tx.Commit()
}

// UpdateReservationWithLock re-checks the conflict predicate for the new
// interval (excluding the reservation itself) and applies the field update
// under an optimistic version guard, all in one transaction.
func (db *DB) UpdateReservationWithLock(ctx context.Context, r *models.Reservation, fromVersion int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, conflictQuery,
		r.RoomID, models.StatusPending, models.StatusConfirmed, r.ID,
		r.EndTime.UTC(), r.StartTime.UTC())
	if _, err := scanReservation(row); err == nil {
		return ErrTimeSlotTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check conflict in tx: %w", err)
	}

	attendees, err := encodeAttendees(r.AttendeeEmails)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `UPDATE reservations SET
                title = ?, description = ?, start_time = ?, end_time = ?,
                attendee_emails = ?, updated_by = ?, updated_at = ?,
                version = version + 1
            WHERE id = ? AND version = ? AND status != ?`,
		r.Title, r.Description, r.StartTime.UTC(), r.EndTime.UTC(),
		attendees, r.UpdatedBy, now,
		r.ID, fromVersion, models.StatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation in tx: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.explainUpdateMiss(ctx, tx, r.ID)
	}
	r.UpdatedAt = now
	r.Version = fromVersion + 1

	return tx.Commit()
}

// CancelReservationWithVersion marks the reservation cancelled. The terminal
// state is guarded in SQL: a second cancel affects zero rows.
func (db *DB) CancelReservationWithVersion(ctx context.Context, id, fromVersion, updatedBy int64) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `UPDATE reservations SET
                status = ?, cancelled_at = ?, updated_by = ?, updated_at = ?,
                version = version + 1
            WHERE id = ? AND version = ? AND status != ?`,
		models.StatusCancelled, now, updatedBy, now,
		id, fromVersion, models.StatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.explainUpdateMiss(ctx, nil, id)
	}
	return nil
}

func (db *DB) explainUpdateMiss(ctx context.Context, tx *sql.Tx, id int64) error {
	var status string
	query := `SELECT status FROM reservations WHERE id = ?`
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, id).Scan(&status)
	} else {
		err = db.QueryRowContext(ctx, query, id).Scan(&status)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect reservation %d: %w", id, err)
	}
	if status == models.StatusCancelled {
		return ErrAlreadyCancelled
	}
	return ErrConcurrentModification
}

// SetReservationStatus performs the pending -> confirmed transition.
func (db *DB) SetReservationStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set reservation status: %w", err)
	}
	return nil
}

// SetExternalLink records the identifiers returned by a successful calendar
// create call.
func (db *DB) SetExternalLink(ctx context.Context, id int64, eventID, recurrenceUID string) error {
	query := `UPDATE reservations SET external_event_id = ?, external_recurrence_uid = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, eventID, recurrenceUID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set external link: %w", err)
	}
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// ReservationFilter narrows ListReservations. Zero values mean "any".
type ReservationFilter struct {
	RequesterID int64
	RoomID      int64
	Status      string
}

func (db *DB) ListReservations(ctx context.Context, filter ReservationFilter) ([]*models.Reservation, error) {
	var conds []string
	var args []interface{}
	if filter.RequesterID != 0 {
		conds = append(conds, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.RoomID != 0 {
		conds = append(conds, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// GetReservationsByDateRange returns reservations whose interval starts
// within [start, end], for export and schedule views.
func (db *DB) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
          WHERE start_time >= ? AND start_time <= ? ORDER BY start_time ASC`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by date range: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var attendees string
	var cancelledAt sql.NullTime
	err := row.Scan(
		&r.ID, &r.RoomID, &r.RoomName, &r.RequesterID, &r.RequesterName, &r.RequesterEmail,
		&r.Title, &r.Description, &r.StartTime, &r.EndTime, &r.Status, &attendees,
		&r.ExternalEmail, &r.ExternalEventID, &r.ExternalRecurrenceUID,
		&r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt, &cancelledAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		r.CancelledAt = &t
	}
	if err := json.Unmarshal([]byte(attendees), &r.AttendeeEmails); err != nil {
		return nil, fmt.Errorf("failed to decode attendee emails: %w", err)
	}
	return &r, nil
}

func scanReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

func encodeAttendees(emails []string) (string, error) {
	if emails == nil {
		emails = []string{}
	}
	raw, err := json.Marshal(emails)
	if err != nil {
		return "", fmt.Errorf("failed to encode attendee emails: %w", err)
	}
	return string(raw), nil
}
