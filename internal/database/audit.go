package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roomsync/internal/models"
)

func (db *DB) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	metadata := "{}"
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = string(raw)
	}

	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `INSERT INTO audit_log
            (actor_id, actor_name, action, target_type, target_id, metadata, created_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ActorID, entry.ActorName, entry.Action, entry.TargetType, entry.TargetID, metadata, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

func (db *DB) GetAuditEntries(ctx context.Context, targetType string, targetID int64) ([]*models.AuditEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, actor_id, actor_name, action, target_type, target_id, metadata, created_at
        FROM audit_log WHERE target_type = ? AND target_id = ? ORDER BY created_at ASC, id ASC`,
		targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var metadata string
		err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &e.Action, &e.TargetType, &e.TargetID, &metadata, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
