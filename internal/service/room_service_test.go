package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"roomsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// countingOracle tracks how many times the external system was asked.
type countingOracle struct {
	free  bool
	calls int
}

func (o *countingOracle) IsFree(ctx context.Context, room *models.Room, start, end time.Time) bool {
	o.calls++
	return o.free
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]bool
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]bool)}
}

func (c *mapCache) Get(ctx context.Context, key string) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	free, found := c.data[key]
	return free, found, nil
}

func (c *mapCache) Set(ctx context.Context, key string, free bool, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = free
	return nil
}

func TestCheckAvailability_LocalConflict(t *testing.T) {
	repo := new(mockRepo)
	svc := NewRoomService(repo, nil, nil, time.Minute, testLogger())

	start, end := futureInterval()
	room := testRoom()
	repo.On("FindConflict", mock.Anything, int64(1), start, end, int64(0)).
		Return(&models.Reservation{ID: 3}, nil)

	availability, err := svc.CheckAvailability(context.Background(), room, start, end)
	require.NoError(t, err)
	assert.False(t, availability.LocalFree)
	// No oracle wired, the external side is unknown.
	assert.False(t, availability.ExternalKnown)
}

func TestCheckAvailability_ExternalAnswer(t *testing.T) {
	repo := new(mockRepo)
	oracle := &countingOracle{free: false}
	svc := NewRoomService(repo, oracle, nil, time.Minute, testLogger())

	start, end := futureInterval()
	repo.On("FindConflict", mock.Anything, int64(1), start, end, int64(0)).Return(nil, nil)

	availability, err := svc.CheckAvailability(context.Background(), testRoom(), start, end)
	require.NoError(t, err)
	assert.True(t, availability.LocalFree)
	assert.True(t, availability.ExternalKnown)
	assert.False(t, availability.ExternalFree)
}

func TestCheckAvailability_LocalOnlyRoom(t *testing.T) {
	repo := new(mockRepo)
	oracle := &countingOracle{free: true}
	svc := NewRoomService(repo, oracle, nil, time.Minute, testLogger())

	start, end := futureInterval()
	room := testRoom()
	room.CalendarAddress = ""
	repo.On("FindConflict", mock.Anything, int64(1), start, end, int64(0)).Return(nil, nil)

	availability, err := svc.CheckAvailability(context.Background(), room, start, end)
	require.NoError(t, err)
	assert.False(t, availability.ExternalKnown)
	assert.Zero(t, oracle.calls)
}

func TestCheckAvailability_CachesFreeBusy(t *testing.T) {
	repo := new(mockRepo)
	oracle := &countingOracle{free: true}
	cache := newMapCache()
	svc := NewRoomService(repo, oracle, cache, time.Minute, testLogger())

	start, end := futureInterval()
	repo.On("FindConflict", mock.Anything, int64(1), start, end, int64(0)).Return(nil, nil)

	for i := 0; i < 3; i++ {
		availability, err := svc.CheckAvailability(context.Background(), testRoom(), start, end)
		require.NoError(t, err)
		assert.True(t, availability.ExternalFree)
	}

	// Second and third answers come from the cache.
	assert.Equal(t, 1, oracle.calls)
}
