package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

// CreateWebhookEndpoint registers an outbound delivery target for a team.
func (s *Store) CreateWebhookEndpoint(ctx context.Context, ep *WebhookEndpoint) error {
	if ep == nil {
		return fmt.Errorf("webhook endpoint is nil")
	}
	if ep.URL == "" || ep.Secret == "" {
		return fmt.Errorf("webhook endpoint url and secret are required")
	}
	ep.Active = true
	ep.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_endpoints (team_id, url, secret, active, created_at)
		VALUES (?, ?, ?, 1, ?)`,
		ep.TeamID, ep.URL, ep.Secret, ep.CreatedAt.Unix(),
	)
	if err != nil {
		return apperrors.Internal("create_webhook_endpoint", "webhook_endpoint", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("create_webhook_endpoint", "webhook_endpoint", fmt.Errorf("insert returned no row: %w", err))
	}
	ep.ID = id
	return nil
}

// ListActiveWebhookEndpoints returns the team's active endpoints.
func (s *Store) ListActiveWebhookEndpoints(ctx context.Context, teamID int64) ([]WebhookEndpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, url, secret, active, created_at
		FROM webhook_endpoints WHERE team_id = ? AND active = 1
		ORDER BY created_at ASC`, teamID)
	if err != nil {
		return nil, apperrors.Internal("list_webhook_endpoints", "webhook_endpoint", err)
	}
	defer rows.Close()

	var endpoints []WebhookEndpoint
	for rows.Next() {
		var ep WebhookEndpoint
		var active int
		var createdAt int64
		if err := rows.Scan(&ep.ID, &ep.TeamID, &ep.URL, &ep.Secret, &active, &createdAt); err != nil {
			return nil, apperrors.Internal("list_webhook_endpoints", "webhook_endpoint", fmt.Errorf("scan endpoint: %w", err))
		}
		ep.Active = active != 0
		ep.CreatedAt = time.Unix(createdAt, 0).UTC()
		endpoints = append(endpoints, ep)
	}
	return endpoints, rows.Err()
}

// DeactivateWebhookEndpoint disables an endpoint. Deliveries already recorded
// stay linked to it.
func (s *Store) DeactivateWebhookEndpoint(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE webhook_endpoints SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return apperrors.Internal("deactivate_webhook_endpoint", "webhook_endpoint", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("deactivate_webhook_endpoint", "webhook_endpoint")
	}
	return nil
}

// RecordWebhookDelivery appends a delivery attempt. The table is append-only
// and every row links to an endpoint.
func (s *Store) RecordWebhookDelivery(ctx context.Context, d *WebhookDelivery) error {
	if d == nil {
		return fmt.Errorf("webhook delivery is nil")
	}
	if d.Payload != "" && !json.Valid([]byte(d.Payload)) {
		return apperrors.NewStoreError(apperrors.ErrorTypeValidation, "record_webhook_delivery", "webhook_delivery",
			fmt.Errorf("payload is not valid JSON"))
	}
	d.DeliveredAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (endpoint_id, event, status, response_status, payload, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.EndpointID, d.Event, d.Status, nullableInt64(d.ResponseStatus),
		nullableString(d.Payload), d.DeliveredAt.Unix(),
	)
	if err != nil {
		return apperrors.Internal("record_webhook_delivery", "webhook_delivery", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("record_webhook_delivery", "webhook_delivery", fmt.Errorf("insert returned no row: %w", err))
	}
	d.ID = id
	return nil
}

// ListRecentWebhookDeliveries returns an endpoint's delivery history, newest
// first.
func (s *Store) ListRecentWebhookDeliveries(ctx context.Context, endpointID int64, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, endpoint_id, event, status, response_status, COALESCE(payload, ''), delivered_at
		FROM webhook_deliveries WHERE endpoint_id = ?
		ORDER BY delivered_at DESC, id DESC
		LIMIT ?`, endpointID, limit)
	if err != nil {
		return nil, apperrors.Internal("list_webhook_deliveries", "webhook_delivery", err)
	}
	defer rows.Close()

	var deliveries []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		var responseStatus sql.NullInt64
		var deliveredAt int64
		if err := rows.Scan(&d.ID, &d.EndpointID, &d.Event, &d.Status, &responseStatus, &d.Payload, &deliveredAt); err != nil {
			return nil, apperrors.Internal("list_webhook_deliveries", "webhook_delivery", fmt.Errorf("scan delivery: %w", err))
		}
		if responseStatus.Valid {
			v := responseStatus.Int64
			d.ResponseStatus = &v
		}
		d.DeliveredAt = time.Unix(deliveredAt, 0).UTC()
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
