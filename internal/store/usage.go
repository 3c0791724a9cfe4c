package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

// RecordUsage appends a usage event. The table is append-only; nothing
// updates or deletes rows.
func (s *Store) RecordUsage(ctx context.Context, ev *UsageEvent) error {
	if ev == nil {
		return fmt.Errorf("usage event is nil")
	}
	if ev.EventKey == "" {
		return fmt.Errorf("usage event key is empty")
	}
	if ev.Quantity == 0 {
		ev.Quantity = 1
	}
	if ev.Properties != "" && !json.Valid([]byte(ev.Properties)) {
		return apperrors.NewStoreError(apperrors.ErrorTypeValidation, "record_usage", "usage_event",
			fmt.Errorf("properties is not valid JSON"))
	}
	ev.CreatedAt = time.Now().UTC()

	var projectID any
	if ev.ProjectID != nil {
		projectID = *ev.ProjectID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (team_id, project_id, event_key, quantity, properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.TeamID, projectID, ev.EventKey, ev.Quantity,
		nullableString(ev.Properties), ev.CreatedAt.Unix(),
	)
	if err != nil {
		return apperrors.Internal("record_usage", "usage_event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("record_usage", "usage_event", fmt.Errorf("insert returned no row: %w", err))
	}
	ev.ID = id
	return nil
}

// UsageTotal sums the quantity recorded for a team and event key since the
// given time.
func (s *Store) UsageTotal(ctx context.Context, teamID int64, eventKey string, since time.Time) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM usage_events
		WHERE team_id = ? AND event_key = ? AND created_at >= ?`,
		teamID, eventKey, since.Unix())

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, apperrors.Internal("usage_total", "usage_event", err)
	}
	return total, nil
}

// ListRecentUsage returns the most recent usage events for a team, newest
// first.
func (s *Store) ListRecentUsage(ctx context.Context, teamID int64, limit int) ([]UsageEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, project_id, event_key, quantity, COALESCE(properties, ''), created_at
		FROM usage_events WHERE team_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, teamID, limit)
	if err != nil {
		return nil, apperrors.Internal("list_recent_usage", "usage_event", err)
	}
	defer rows.Close()

	var events []UsageEvent
	for rows.Next() {
		var ev UsageEvent
		var projectID sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&ev.ID, &ev.TeamID, &projectID, &ev.EventKey, &ev.Quantity, &ev.Properties, &createdAt); err != nil {
			return nil, apperrors.Internal("list_recent_usage", "usage_event", fmt.Errorf("scan usage event: %w", err))
		}
		if projectID.Valid {
			id := projectID.Int64
			ev.ProjectID = &id
		}
		ev.CreatedAt = time.Unix(createdAt, 0).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}
