package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomsync/internal/database"
	"roomsync/internal/export"
	"roomsync/internal/models"
	"roomsync/internal/service"
)

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r)
	case http.MethodPost:
		s.createReservation(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleReservationSubpath(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/reservations/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")

	if rest == "export" {
		s.exportReservations(w, r)
		return
	}

	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.getReservation(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodPatch:
		s.updateReservation(w, r, id)
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		s.cancelReservation(w, r, id)
	case len(parts) == 1 || (len(parts) == 2 && parts[1] == "cancel"):
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

type createReservationRequest struct {
	RoomID         int64     `json:"room_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	AttendeeEmails []string  `json:"attendee_emails"`
	ExternalEmail  string    `json:"external_email"`
}

func (s *HTTPServer) createReservation(w http.ResponseWriter, r *http.Request) {
	actor := CurrentUser(r)

	var body createReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := &models.Reservation{
		RoomID:         body.RoomID,
		Title:          body.Title,
		Description:    body.Description,
		StartTime:      body.StartTime,
		EndTime:        body.EndTime,
		AttendeeEmails: body.AttendeeEmails,
		ExternalEmail:  body.ExternalEmail,
	}

	created, err := s.bookings.CreateReservation(r.Context(), actor, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) getReservation(w http.ResponseWriter, r *http.Request, id int64) {
	res, err := s.bookings.GetReservation(r.Context(), CurrentUser(r), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) listReservations(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	var roomID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("room_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid room_id")
			return
		}
		roomID = parsed
	}

	reservations, err := s.bookings.ListReservations(r.Context(), CurrentUser(r), status, roomID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

func (s *HTTPServer) updateReservation(w http.ResponseWriter, r *http.Request, id int64) {
	var update models.ReservationUpdate
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.bookings.UpdateReservation(r.Context(), CurrentUser(r), id, update)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) cancelReservation(w http.ResponseWriter, r *http.Request, id int64) {
	cancelled, err := s.bookings.CancelReservation(r.Context(), CurrentUser(r), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

func (s *HTTPServer) exportReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	actor := CurrentUser(r)
	if !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservations, err := s.bookings.GetReservationsByDateRange(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("reservations_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteReservationsXLSX(w, reservations, from, to); err != nil {
		s.logger.Error().Err(err).Msg("write export")
	}
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rooms, err := s.rooms.GetActiveRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleRoomSubpath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/rooms/"
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "availability" || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	start, err := parseRFC3339(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected RFC3339")
		return
	}
	end, err := parseRFC3339(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected RFC3339")
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "start must be before end")
		return
	}

	room, err := s.rooms.GetRoomByName(r.Context(), parts[0])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	availability, err := s.rooms.CheckAvailability(r.Context(), room, start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room":           room.Name,
		"start":          start.UTC().Format(time.RFC3339),
		"end":            end.UTC().Format(time.RFC3339),
		"local_free":     availability.LocalFree,
		"external_free":  availability.ExternalFree,
		"external_known": availability.ExternalKnown,
	})
}

// writeServiceError maps domain errors onto HTTP statuses. Unrecognized
// errors are logged and reported as a plain 500 without leaking detail.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case service.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, database.ErrRoomNotFound),
		errors.Is(err, database.ErrReservationNotFound),
		errors.Is(err, database.ErrRoomInactive),
		errors.Is(err, database.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrTimeSlotTaken),
		errors.Is(err, database.ErrAlreadyCancelled),
		errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseRFC3339(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

// parseDateRange reads from/to query params (YYYY-MM-DD, inclusive) and
// returns the covered interval. Defaults to the current month.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %s", raw)
		}
		from = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %s", raw)
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}
