package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roomsync/internal/models"
)

// UpsertUser records the authenticated principal. Called on every request,
// so the registry tracks last activity without a separate write path.
func (db *DB) UpsertUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `INSERT INTO users (id, name, email, role, last_activity, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            email = excluded.email,
            role = excluded.role,
            last_activity = excluded.last_activity,
            updated_at = excluded.updated_at`,
		user.ID, user.Name, user.Email, user.Role, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, `SELECT id, name, email, role, last_activity, created_at, updated_at
        FROM users WHERE id = ?`, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.Role,
		&user.LastActivity, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetActiveUsers returns users active within the last N days.
func (db *DB) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := db.QueryContext(ctx, `SELECT id, name, email, role, last_activity, created_at, updated_at
        FROM users WHERE last_activity >= ? ORDER BY last_activity DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get active users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.Role,
			&user.LastActivity, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
