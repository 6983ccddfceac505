package models

import "time"

// ExternalEvent is the mirrored representation of a reservation in the
// external calendar system.
type ExternalEvent struct {
	Subject        string    `json:"subject"`
	Body           string    `json:"body,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AttendeeEmails []string  `json:"attendee_emails,omitempty"`
}

// ExternalEventPatch carries only the fields that changed. Nil means
// "do not touch".
type ExternalEventPatch struct {
	Subject        *string    `json:"subject,omitempty"`
	Body           *string    `json:"body,omitempty"`
	Start          *time.Time `json:"start,omitempty"`
	End            *time.Time `json:"end,omitempty"`
	AttendeeEmails *[]string  `json:"attendee_emails,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ExternalEventPatch) Empty() bool {
	return p.Subject == nil && p.Body == nil && p.Start == nil &&
		p.End == nil && p.AttendeeEmails == nil
}

// ExternalLink holds the identifiers the external system returned for a
// successfully created event.
type ExternalLink struct {
	EventID       string `json:"event_id"`
	RecurrenceUID string `json:"recurrence_uid,omitempty"`
}
