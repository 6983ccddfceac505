package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"roomsync/internal/models"
)

// SeedRooms upserts the configured room list and fills the in-memory cache.
// Rooms removed from the config are deactivated, never deleted, so their
// reservation history stays intact.
func (db *DB) SeedRooms(ctx context.Context, rooms []models.Room) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	seen := make(map[int64]bool, len(rooms))
	for _, room := range rooms {
		seen[room.ID] = true
		_, err := tx.ExecContext(ctx, `INSERT INTO rooms
                (id, name, location, capacity, calendar_address, sort_order, is_active, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT(id) DO UPDATE SET
                    name = excluded.name,
                    location = excluded.location,
                    capacity = excluded.capacity,
                    calendar_address = excluded.calendar_address,
                    sort_order = excluded.sort_order,
                    is_active = excluded.is_active,
                    updated_at = excluded.updated_at`,
			room.ID, room.Name, room.Location, room.Capacity,
			room.CalendarAddress, room.SortOrder, room.IsActive, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert room %d: %w", room.ID, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM rooms WHERE is_active = 1`)
	if err != nil {
		return fmt.Errorf("failed to list active rooms: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan room id: %w", err)
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx,
			`UPDATE rooms SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("failed to deactivate room %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.mu.Lock()
	db.roomsCache = make(map[int64]*models.Room, len(rooms))
	for i := range rooms {
		room := rooms[i]
		db.roomsCache[room.ID] = &room
	}
	db.mu.Unlock()

	return nil
}

func (db *DB) GetRoomByID(ctx context.Context, id int64) (*models.Room, error) {
	db.mu.RLock()
	if room, ok := db.roomsCache[id]; ok {
		db.mu.RUnlock()
		copied := *room
		return &copied, nil
	}
	db.mu.RUnlock()

	return db.queryRoom(ctx, `WHERE id = ?`, id)
}

func (db *DB) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	db.mu.RLock()
	for _, room := range db.roomsCache {
		if room.Name == name {
			db.mu.RUnlock()
			copied := *room
			return &copied, nil
		}
	}
	db.mu.RUnlock()

	return db.queryRoom(ctx, `WHERE name = ?`, name)
}

func (db *DB) queryRoom(ctx context.Context, where string, arg interface{}) (*models.Room, error) {
	var room models.Room
	err := db.QueryRowContext(ctx, `SELECT id, name, location, capacity, calendar_address,
                 sort_order, is_active, created_at, updated_at FROM rooms `+where, arg).Scan(
		&room.ID, &room.Name, &room.Location, &room.Capacity, &room.CalendarAddress,
		&room.SortOrder, &room.IsActive, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (db *DB) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, location, capacity, calendar_address,
                 sort_order, is_active, created_at, updated_at
          FROM rooms WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var room models.Room
		err := rows.Scan(
			&room.ID, &room.Name, &room.Location, &room.Capacity, &room.CalendarAddress,
			&room.SortOrder, &room.IsActive, &room.CreatedAt, &room.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].SortOrder == rooms[j].SortOrder {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].SortOrder < rooms[j].SortOrder
	})
	return rooms, nil
}

func (db *DB) DeactivateRoom(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE rooms SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate room: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}

	db.mu.Lock()
	if room, ok := db.roomsCache[id]; ok {
		room.IsActive = false
	}
	db.mu.Unlock()
	return nil
}
