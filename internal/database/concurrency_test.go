package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"roomsync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentReservation(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SeedRooms(ctx, []models.Room{
		{ID: 1, Name: "aurora", IsActive: true},
	}))

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			r := &models.Reservation{
				RoomID:        1,
				RoomName:      "aurora",
				RequesterID:   int64(id + 1),
				RequesterName: "User",
				Title:         "Contended slot",
				StartTime:     start,
				EndTime:       end,
				Status:        models.StatusPending,
				CreatedBy:     int64(id + 1),
				UpdatedBy:     int64(id + 1),
			}
			results <- db.CreateReservationWithLock(ctx, r)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	failCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, ErrTimeSlotTaken)
			failCount++
		}
	}

	// Exactly one writer may claim the interval.
	assert.Equal(t, 1, successCount)
	assert.Equal(t, numGoroutines-1, failCount)

	active, err := db.ListReservations(ctx, ReservationFilter{Status: models.StatusPending})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConcurrentCancel(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "cancel.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SeedRooms(ctx, []models.Room{
		{ID: 1, Name: "aurora", IsActive: true},
	}))

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	r := &models.Reservation{
		RoomID:        1,
		RoomName:      "aurora",
		RequesterID:   1,
		RequesterName: "User",
		Title:         "Contended cancel",
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        models.StatusConfirmed,
		CreatedBy:     1,
		UpdatedBy:     1,
	}
	require.NoError(t, db.CreateReservationWithLock(ctx, r))

	const numGoroutines = 5
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			results <- db.CancelReservationWithVersion(ctx, r.ID, r.Version, 1)
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount)

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}
