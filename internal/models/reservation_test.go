package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func slot(h, d int) (time.Time, time.Time) {
	start := time.Date(2026, 9, 1, h, 0, 0, 0, time.UTC)
	return start, start.Add(time.Duration(d) * time.Hour)
}

func TestReservationOverlaps(t *testing.T) {
	start, end := slot(10, 2) // 10:00-12:00
	r := &Reservation{StartTime: start, EndTime: end}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"inside", start.Add(30 * time.Minute), end.Add(-30 * time.Minute), true},
		{"covers", start.Add(-time.Hour), end.Add(time.Hour), true},
		{"overlaps start", start.Add(-time.Hour), start.Add(time.Hour), true},
		{"overlaps end", end.Add(-time.Hour), end.Add(time.Hour), true},
		{"back-to-back before", start.Add(-time.Hour), start, false},
		{"back-to-back after", end, end.Add(time.Hour), false},
		{"disjoint", end.Add(time.Hour), end.Add(2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Overlaps(tt.start, tt.end))
		})
	}
}

func TestReservationActive(t *testing.T) {
	assert.True(t, (&Reservation{Status: StatusPending}).Active())
	assert.True(t, (&Reservation{Status: StatusConfirmed}).Active())
	assert.False(t, (&Reservation{Status: StatusCancelled}).Active())
}

func TestReservationUpdateEmpty(t *testing.T) {
	assert.True(t, ReservationUpdate{}.Empty())

	title := "standup"
	assert.False(t, ReservationUpdate{Title: &title}.Empty())
}

func TestReservationUpdateChangesInterval(t *testing.T) {
	title := "standup"
	assert.False(t, ReservationUpdate{Title: &title}.ChangesInterval())

	start, _ := slot(14, 1)
	assert.True(t, ReservationUpdate{StartTime: &start}.ChangesInterval())
}

func TestReservationUpdateApply(t *testing.T) {
	start, end := slot(10, 1)
	original := Reservation{
		Title:          "old",
		Description:    "keep me",
		StartTime:      start,
		EndTime:        end,
		AttendeeEmails: []string{"a@corp.example"},
	}

	title := "new"
	newEnd := end.Add(time.Hour)
	updated := ReservationUpdate{Title: &title, EndTime: &newEnd}.Apply(original)

	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, start, updated.StartTime)
	assert.Equal(t, newEnd, updated.EndTime)
	// original copy is untouched
	assert.Equal(t, "old", original.Title)
	assert.Equal(t, end, original.EndTime)
}

func TestUserIsAdmin(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
}
