package export

import (
	"bytes"
	"testing"
	"time"

	"roomsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReservationsXLSX(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	reservations := []*models.Reservation{
		{
			ID:             1,
			RoomName:       "aurora",
			Title:          "standup",
			RequesterName:  "Alice",
			RequesterEmail: "alice@corp.example",
			StartTime:      from.Add(10 * time.Hour),
			EndTime:        from.Add(11 * time.Hour),
			Status:         models.StatusConfirmed,
			AttendeeEmails: []string{"bob@corp.example", "eve@corp.example"},
		},
		{
			ID:            2,
			RoomName:      "borealis",
			Title:         "retro",
			RequesterName: "Bob",
			StartTime:     from.Add(34 * time.Hour),
			EndTime:       from.Add(35 * time.Hour),
			Status:        models.StatusCancelled,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReservationsXLSX(&buf, reservations, from, to))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Reservations", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Period: 2026-09-01 - 2026-09-30", title)

	header, err := f.GetCellValue("Reservations", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Room", header)

	room, err := f.GetCellValue("Reservations", "B3")
	require.NoError(t, err)
	assert.Equal(t, "aurora", room)

	attendees, err := f.GetCellValue("Reservations", "H3")
	require.NoError(t, err)
	assert.Equal(t, "bob@corp.example, eve@corp.example", attendees)

	status, err := f.GetCellValue("Reservations", "G4")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", status)
}

func TestWriteReservationsXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, WriteReservationsXLSX(&buf, nil, from, from.AddDate(0, 1, 0)))
	assert.NotZero(t, buf.Len())
}
