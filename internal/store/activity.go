package store

import (
	"context"
	"fmt"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

const defaultActivityLimit = 10

// RecordActivity appends an activity-log row. The log is append-only.
func (s *Store) RecordActivity(ctx context.Context, entry *ActivityLog) error {
	if entry == nil {
		return fmt.Errorf("activity entry is nil")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var userID any
	if entry.UserID != nil {
		userID = *entry.UserID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (team_id, user_id, action, timestamp, ip_address)
		VALUES (?, ?, ?, ?, ?)`,
		entry.TeamID, userID, string(entry.Action), entry.Timestamp.Unix(), entry.IPAddress,
	)
	if err != nil {
		return apperrors.Internal("record_activity", "activity_log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("record_activity", "activity_log", fmt.Errorf("insert returned no row: %w", err))
	}
	entry.ID = id
	return nil
}

// ListRecentActivity returns the most recent activity rows for the user,
// newest first, left-joined with the acting user's display name. UserName is
// empty when the user record carries no name.
func (s *Store) ListRecentActivity(ctx context.Context, userID int64, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT al.id, al.action, al.timestamp, al.ip_address, COALESCE(u.name, '')
		FROM activity_logs al
		LEFT JOIN users u ON al.user_id = u.id
		WHERE al.user_id = ?
		ORDER BY al.timestamp DESC, al.id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, apperrors.Internal("list_recent_activity", "activity_log", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var action string
		var ts int64
		if err := rows.Scan(&e.ID, &action, &ts, &e.IPAddress, &e.UserName); err != nil {
			return nil, apperrors.Internal("list_recent_activity", "activity_log", fmt.Errorf("scan activity: %w", err))
		}
		e.Action = ActivityType(action)
		e.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
