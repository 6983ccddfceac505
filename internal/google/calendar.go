package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"roomsync/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// CalendarService mirrors reservations into Google Calendar. One instance is
// constructed at process start and injected into every component that talks
// to the external system.
type CalendarService struct {
	service *calendar.Service
}

func NewCalendarService(credentialsFile string) (*CalendarService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	client := config.Client(ctx)

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	return &CalendarService{service: srv}, nil
}

// TestConnection проверяет доступ к календарю
func (s *CalendarService) TestConnection(ctx context.Context, calendarID string) error {
	_, err := s.service.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to access calendar %s: %w", calendarID, err)
	}
	return nil
}

func (s *CalendarService) CreateEvent(ctx context.Context, calendarID string, event *models.ExternalEvent) (*models.ExternalLink, error) {
	created, err := s.service.Events.Insert(calendarID, eventBody(event)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar event insert: %w", err)
	}
	return &models.ExternalLink{EventID: created.Id, RecurrenceUID: created.ICalUID}, nil
}

// PatchEvent sends only the changed fields; the Calendar API merges them
// into the stored event.
func (s *CalendarService) PatchEvent(ctx context.Context, calendarID, eventID string, patch *models.ExternalEventPatch) error {
	body := &calendar.Event{}
	if patch.Subject != nil {
		body.Summary = *patch.Subject
	}
	if patch.Body != nil {
		body.Description = *patch.Body
		body.ForceSendFields = append(body.ForceSendFields, "Description")
	}
	if patch.Start != nil {
		body.Start = eventTime(*patch.Start)
	}
	if patch.End != nil {
		body.End = eventTime(*patch.End)
	}
	if patch.AttendeeEmails != nil {
		body.Attendees = eventAttendees(*patch.AttendeeEmails)
		body.ForceSendFields = append(body.ForceSendFields, "Attendees")
	}

	_, err := s.service.Events.Patch(calendarID, eventID, body).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("calendar event patch: %w", err)
	}
	return nil
}

func (s *CalendarService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := s.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		// Already-deleted events count as success for reconciliation.
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) &&
			(apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("calendar event delete: %w", err)
	}
	return nil
}

// IsFree runs a free/busy query over [start, end) for the room's calendar.
func (s *CalendarService) IsFree(ctx context.Context, calendarID string, start, end time.Time) (bool, error) {
	req := &calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}

	resp, err := s.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return false, fmt.Errorf("freebusy response missing calendar %s", calendarID)
	}
	if len(cal.Errors) > 0 {
		return false, fmt.Errorf("freebusy calendar error: %s", cal.Errors[0].Reason)
	}

	return len(cal.Busy) == 0, nil
}

func eventBody(event *models.ExternalEvent) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Subject,
		Description: event.Body,
		Start:       eventTime(event.Start),
		End:         eventTime(event.End),
		Attendees:   eventAttendees(event.AttendeeEmails),
	}
}

func eventTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.UTC().Format(time.RFC3339), TimeZone: "UTC"}
}

func eventAttendees(emails []string) []*calendar.EventAttendee {
	attendees := make([]*calendar.EventAttendee, 0, len(emails))
	for _, email := range emails {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}
	return attendees
}
