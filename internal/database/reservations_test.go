package database

import (
	"context"
	"os"
	"testing"
	"time"

	"roomsync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

func seedTestRoom(t *testing.T, db *DB) *models.Room {
	t.Helper()
	err := db.SeedRooms(context.Background(), []models.Room{
		{ID: 1, Name: "aurora", Capacity: 8, CalendarAddress: "aurora@example.com", IsActive: true},
	})
	require.NoError(t, err)

	room, err := db.GetRoomByID(context.Background(), 1)
	require.NoError(t, err)
	return room
}

func testReservation(roomID int64, start, end time.Time) *models.Reservation {
	return &models.Reservation{
		RoomID:        roomID,
		RoomName:      "aurora",
		RequesterID:   42,
		RequesterName: "Alice",
		Title:         "Weekly sync",
		StartTime:     start,
		EndTime:       end,
		Status:        models.StatusPending,
		CreatedBy:     42,
		UpdatedBy:     42,
	}
}

func TestCreateReservationWithLock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	r := testReservation(room.ID, start, end)
	err := db.CreateReservationWithLock(ctx, r)
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, int64(1), r.Version)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly sync", got.Title)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.True(t, got.StartTime.Equal(start))
	assert.True(t, got.EndTime.Equal(end))
}

func TestCreateReservationWithLock_Conflict(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	require.NoError(t, db.CreateReservationWithLock(ctx, testReservation(room.ID, start, end)))

	// Fully contained interval
	err := db.CreateReservationWithLock(ctx, testReservation(room.ID, start.Add(15*time.Minute), start.Add(30*time.Minute)))
	assert.ErrorIs(t, err, ErrTimeSlotTaken)

	// Overlapping tail
	err = db.CreateReservationWithLock(ctx, testReservation(room.ID, start.Add(30*time.Minute), end.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrTimeSlotTaken)
}

func TestCreateReservationWithLock_BackToBack(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	require.NoError(t, db.CreateReservationWithLock(ctx, testReservation(room.ID, start, end)))

	// [end, end+1h) touches the first interval; half-open semantics allow it.
	err := db.CreateReservationWithLock(ctx, testReservation(room.ID, end, end.Add(time.Hour)))
	assert.NoError(t, err)

	// And the slot right before.
	err = db.CreateReservationWithLock(ctx, testReservation(room.ID, start.Add(-time.Hour), start))
	assert.NoError(t, err)
}

func TestCancelFreesSlot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	first := testReservation(room.ID, start, end)
	require.NoError(t, db.CreateReservationWithLock(ctx, first))

	err := db.CreateReservationWithLock(ctx, testReservation(room.ID, start, end))
	require.ErrorIs(t, err, ErrTimeSlotTaken)

	require.NoError(t, db.CancelReservationWithVersion(ctx, first.ID, first.Version, 42))

	// Cancelled rows no longer participate in conflict detection.
	err = db.CreateReservationWithLock(ctx, testReservation(room.ID, start, end))
	assert.NoError(t, err)

	got, err := db.GetReservation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
}

func TestCancelReservation_AlreadyCancelled(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	r := testReservation(room.ID, start, start.Add(time.Hour))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	require.NoError(t, db.CancelReservationWithVersion(ctx, r.ID, r.Version, 42))

	err := db.CancelReservationWithVersion(ctx, r.ID, r.Version+1, 42)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCancelReservation_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	seedTestRoom(t, db)

	err := db.CancelReservationWithVersion(context.Background(), 9999, 1, 42)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestUpdateReservationWithLock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	r := testReservation(room.ID, start, start.Add(time.Hour))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	r.Title = "Moved sync"
	r.StartTime = start.Add(2 * time.Hour)
	r.EndTime = start.Add(3 * time.Hour)
	require.NoError(t, db.UpdateReservationWithLock(ctx, r, 1))
	assert.Equal(t, int64(2), r.Version)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Moved sync", got.Title)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.StartTime.Equal(start.Add(2*time.Hour)))
}

func TestUpdateReservationWithLock_StaleVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	r := testReservation(room.ID, start, start.Add(time.Hour))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	r.Title = "First writer"
	require.NoError(t, db.UpdateReservationWithLock(ctx, r, 1))

	// Second writer still holds version 1.
	stale := *r
	stale.Title = "Second writer"
	err := db.UpdateReservationWithLock(ctx, &stale, 1)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestUpdateReservationWithLock_ConflictOnNewInterval(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	first := testReservation(room.ID, start, start.Add(time.Hour))
	require.NoError(t, db.CreateReservationWithLock(ctx, first))

	second := testReservation(room.ID, start.Add(2*time.Hour), start.Add(3*time.Hour))
	require.NoError(t, db.CreateReservationWithLock(ctx, second))

	// Move the second on top of the first.
	second.StartTime = start.Add(30 * time.Minute)
	second.EndTime = start.Add(90 * time.Minute)
	err := db.UpdateReservationWithLock(ctx, second, second.Version)
	assert.ErrorIs(t, err, ErrTimeSlotTaken)

	// Shrinking within its own slot is fine; own row is excluded.
	second.StartTime = start.Add(2 * time.Hour)
	second.EndTime = start.Add(150 * time.Minute)
	err = db.UpdateReservationWithLock(ctx, second, second.Version)
	assert.NoError(t, err)
}

func TestFindConflict_DifferentRoomsIndependent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	err := db.SeedRooms(ctx, []models.Room{
		{ID: 1, Name: "aurora", IsActive: true},
		{ID: 2, Name: "borealis", IsActive: true},
	})
	require.NoError(t, err)

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	require.NoError(t, db.CreateReservationWithLock(ctx, testReservation(1, start, end)))

	conflict, err := db.FindConflict(ctx, 2, start, end, 0)
	require.NoError(t, err)
	assert.Nil(t, conflict)

	conflict, err = db.FindConflict(ctx, 1, start, end, 0)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "Weekly sync", conflict.Title)
}

func TestSetExternalLinkAndStatus(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	r := testReservation(room.ID, start, start.Add(time.Hour))
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	require.NoError(t, db.SetExternalLink(ctx, r.ID, "evt_123", "uid_123"))
	require.NoError(t, db.SetReservationStatus(ctx, r.ID, models.StatusConfirmed))

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt_123", got.ExternalEventID)
	assert.Equal(t, "uid_123", got.ExternalRecurrenceUID)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestListReservations_Filters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	first := testReservation(room.ID, start, start.Add(time.Hour))
	require.NoError(t, db.CreateReservationWithLock(ctx, first))

	second := testReservation(room.ID, start.Add(2*time.Hour), start.Add(3*time.Hour))
	second.RequesterID = 77
	require.NoError(t, db.CreateReservationWithLock(ctx, second))
	require.NoError(t, db.CancelReservationWithVersion(ctx, second.ID, second.Version, 77))

	all, err := db.ListReservations(ctx, ReservationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := db.ListReservations(ctx, ReservationFilter{RequesterID: 77})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID)

	cancelled, err := db.ListReservations(ctx, ReservationFilter{Status: models.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, second.ID, cancelled[0].ID)
}

func TestGetReservationsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateReservationWithLock(ctx, testReservation(room.ID, start, start.Add(time.Hour))))
	require.NoError(t, db.CreateReservationWithLock(ctx, testReservation(room.ID, start.AddDate(0, 0, 10), start.AddDate(0, 0, 10).Add(time.Hour))))

	inRange, err := db.GetReservationsByDateRange(ctx, start.AddDate(0, 0, -1), start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, inRange, 1)
}

func TestAttendeeEmailsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	room := seedTestRoom(t, db)

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	r := testReservation(room.ID, start, start.Add(time.Hour))
	r.AttendeeEmails = []string{"bob@example.com", "carol@example.com"}
	r.ExternalEmail = "guest@partner.example"
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, got.AttendeeEmails)
	assert.Equal(t, "guest@partner.example", got.ExternalEmail)
}
