package service

import (
	"context"
	"fmt"
	"time"

	"roomsync/internal/domain"
	"roomsync/internal/models"

	"github.com/rs/zerolog"
)

// RoomService answers room listing and availability questions. External
// free/busy answers are cached with a short TTL so the availability endpoint
// does not hammer the calendar API.
type RoomService struct {
	repo     domain.Repository
	oracle   domain.AvailabilityOracle
	cache    domain.FreeBusyCache
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

func NewRoomService(repo domain.Repository, oracle domain.AvailabilityOracle, cache domain.FreeBusyCache, cacheTTL time.Duration, logger *zerolog.Logger) *RoomService {
	if cacheTTL <= 0 {
		cacheTTL = models.DefaultFreeBusyCacheTTL * time.Second
	}
	return &RoomService{
		repo:     repo,
		oracle:   oracle,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *RoomService) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	return s.repo.GetActiveRooms(ctx)
}

func (s *RoomService) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	return s.repo.GetRoomByName(ctx, name)
}

// CheckAvailability combines the authoritative local conflict check with the
// advisory external answer.
func (s *RoomService) CheckAvailability(ctx context.Context, room *models.Room, start, end time.Time) (*models.RoomAvailability, error) {
	conflict, err := s.repo.FindConflict(ctx, room.ID, start, end, 0)
	if err != nil {
		return nil, err
	}

	availability := &models.RoomAvailability{
		RoomID:    room.ID,
		RoomName:  room.Name,
		StartTime: start,
		EndTime:   end,
		LocalFree: conflict == nil,
	}

	if s.oracle != nil && room.CalendarAddress != "" {
		availability.ExternalKnown = true
		availability.ExternalFree = s.externalFree(ctx, room, start, end)
	}

	return availability, nil
}

func (s *RoomService) externalFree(ctx context.Context, room *models.Room, start, end time.Time) bool {
	key := freeBusyKey(room.ID, start, end)
	if s.cache != nil {
		if free, found, err := s.cache.Get(ctx, key); err == nil && found {
			return free
		} else if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("freebusy cache get")
		}
	}

	free := s.oracle.IsFree(ctx, room, start, end)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, free, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("freebusy cache set")
		}
	}
	return free
}

func freeBusyKey(roomID int64, start, end time.Time) string {
	return fmt.Sprintf("freebusy:%d:%d:%d", roomID, start.Unix(), end.Unix())
}
