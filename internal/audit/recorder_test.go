package audit

import (
	"context"
	"errors"
	"io"
	"testing"

	"roomsync/internal/database"
	"roomsync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*Recorder, *database.DB) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecorder(db, &logger), db
}

func TestRecordWritesEntry(t *testing.T) {
	recorder, db := newTestRecorder(t)

	actor := &models.User{ID: 42, Name: "Alice"}
	recorder.Record(context.Background(), actor, "reservation.created", 7, map[string]interface{}{
		"room_id": 1,
	})

	entries, err := db.GetAuditEntries(context.Background(), "reservation", 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(42), entries[0].ActorID)
	assert.Equal(t, "Alice", entries[0].ActorName)
	assert.Equal(t, "reservation.created", entries[0].Action)
	assert.Equal(t, float64(1), entries[0].Metadata["room_id"])
}

func TestRecordSurvivesCancelledContext(t *testing.T) {
	recorder, db := newTestRecorder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recorder.Record(ctx, nil, "reservation.cancelled", 9, nil)

	entries, err := db.GetAuditEntries(context.Background(), "reservation", 9)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].ActorID)
}

type failingRepo struct {
	*database.DB
}

func (f *failingRepo) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	return errors.New("disk full")
}

func TestRecordSwallowsRepositoryError(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	recorder := NewRecorder(&failingRepo{DB: db}, &logger)

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), nil, "reservation.updated", 3, nil)
	})
}
