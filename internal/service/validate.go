package service

import (
	"net/mail"
	"strings"
	"time"

	"roomsync/internal/models"
)

// validateReservation checks the constraints shared by create and update.
func validateReservation(r *models.Reservation) error {
	if len(strings.TrimSpace(r.Title)) < models.MinTitleLength {
		return &ValidationError{Field: "title", Reason: "must be at least 3 characters"}
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return &ValidationError{Field: "start_time", Reason: "start and end are required"}
	}
	if !r.StartTime.Before(r.EndTime) {
		return &ValidationError{Field: "end_time", Reason: "end must be after start"}
	}
	if err := validateEmails(r.AttendeeEmails); err != nil {
		return err
	}
	if r.ExternalEmail != "" {
		if _, err := mail.ParseAddress(r.ExternalEmail); err != nil {
			return &ValidationError{Field: "external_email", Reason: "malformed email address"}
		}
	}
	return nil
}

// validateCreateTiming applies creation-only temporal bounds: no retroactive
// bookings, and nothing beyond the configured horizon. Updates of existing
// reservations are exempt, so a running meeting can still be edited.
func validateCreateTiming(r *models.Reservation, maxBookingDays int) error {
	now := time.Now()
	if r.StartTime.Before(now) {
		return &ValidationError{Field: "start_time", Reason: "must not be in the past"}
	}
	if maxBookingDays > 0 {
		horizon := now.AddDate(0, 0, maxBookingDays)
		if r.StartTime.After(horizon) {
			return &ValidationError{Field: "start_time", Reason: "too far in the future"}
		}
	}
	return nil
}

func validateEmails(emails []string) error {
	for _, email := range emails {
		if _, err := mail.ParseAddress(email); err != nil {
			return &ValidationError{Field: "attendee_emails", Reason: "malformed email address: " + email}
		}
	}
	return nil
}
