package models

import "time"

// Reservation is a claim on a room for a half-open interval [StartTime, EndTime).
type Reservation struct {
	ID             int64      `json:"id"`
	RoomID         int64      `json:"room_id"`
	RoomName       string     `json:"room_name"`
	RequesterID    int64      `json:"requester_id"`
	RequesterName  string     `json:"requester_name"`
	RequesterEmail string     `json:"requester_email"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
	Status         string     `json:"status"` // pending, confirmed, cancelled
	AttendeeEmails []string   `json:"attendee_emails,omitempty"`
	ExternalEmail  string     `json:"external_email,omitempty"`
	// ExternalEventID is set only after a successful calendar sync. Its
	// absence is a valid steady state (degraded sync), not an error.
	ExternalEventID       string     `json:"external_event_id,omitempty"`
	ExternalRecurrenceUID string     `json:"external_recurrence_uid,omitempty"`
	CreatedBy             int64      `json:"created_by"`
	UpdatedBy             int64      `json:"updated_by"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	Version               int64      `json:"version"`
}

// Active reports whether the reservation still holds its slot.
func (r *Reservation) Active() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// Overlaps reports whether [start, end) intersects the reservation interval.
// Touching endpoints do not overlap, which allows back-to-back bookings.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime)
}

// ReservationUpdate carries a partial update. Nil fields are left untouched.
type ReservationUpdate struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	AttendeeEmails *[]string  `json:"attendee_emails,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ReservationUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.StartTime == nil &&
		u.EndTime == nil && u.AttendeeEmails == nil
}

// ChangesInterval reports whether the update touches the time range.
func (u ReservationUpdate) ChangesInterval() bool {
	return u.StartTime != nil || u.EndTime != nil
}

// Apply merges the update into a copy of the reservation.
func (u ReservationUpdate) Apply(r Reservation) Reservation {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.StartTime != nil {
		r.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		r.EndTime = *u.EndTime
	}
	if u.AttendeeEmails != nil {
		r.AttendeeEmails = *u.AttendeeEmails
	}
	return r
}
