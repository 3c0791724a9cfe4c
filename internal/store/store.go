package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the provisioning and entitlement store. It owns the database
// handle; construct it explicitly and pass it to collaborators instead of
// reaching for ambient state.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dbPath := filepath.Join(dir, "app.db")
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'member',
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL,
		deleted_at    INTEGER
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
		ON users(email) WHERE deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS teams (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		name                   TEXT NOT NULL,
		stripe_customer_id     TEXT,
		stripe_subscription_id TEXT,
		stripe_product_id      TEXT,
		plan_name              TEXT NOT NULL DEFAULT '',
		subscription_status    TEXT NOT NULL DEFAULT '',
		created_at             INTEGER NOT NULL,
		updated_at             INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_stripe_customer_id
		ON teams(stripe_customer_id) WHERE stripe_customer_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_stripe_subscription_id
		ON teams(stripe_subscription_id) WHERE stripe_subscription_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS team_members (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id   INTEGER NOT NULL REFERENCES users(id),
		team_id   INTEGER NOT NULL REFERENCES teams(id),
		role      TEXT NOT NULL,
		joined_at INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_team_members_user_team
		ON team_members(user_id, team_id);
	CREATE INDEX IF NOT EXISTS idx_team_members_team ON team_members(team_id);

	CREATE TABLE IF NOT EXISTS activity_logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id    INTEGER NOT NULL REFERENCES teams(id),
		user_id    INTEGER REFERENCES users(id),
		action     TEXT NOT NULL,
		timestamp  INTEGER NOT NULL,
		ip_address TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_activity_logs_user ON activity_logs(user_id, timestamp);

	CREATE TABLE IF NOT EXISTS invitations (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id    INTEGER NOT NULL REFERENCES teams(id),
		email      TEXT NOT NULL,
		role       TEXT NOT NULL,
		invited_by INTEGER NOT NULL REFERENCES users(id),
		invited_at INTEGER NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending'
	);
	CREATE INDEX IF NOT EXISTS idx_invitations_team ON invitations(team_id, status);

	CREATE TABLE IF NOT EXISTS projects (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id    INTEGER NOT NULL REFERENCES teams(id),
		name       TEXT NOT NULL,
		slug       TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_slug ON projects(slug);

	CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id      INTEGER NOT NULL REFERENCES teams(id),
		name         TEXT NOT NULL DEFAULT '',
		key_hash     TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		last_used_at INTEGER,
		revoked_at   INTEGER
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash);
	CREATE INDEX IF NOT EXISTS idx_api_keys_team ON api_keys(team_id);

	CREATE TABLE IF NOT EXISTS webhook_endpoints (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id    INTEGER NOT NULL REFERENCES teams(id),
		url        TEXT NOT NULL,
		secret     TEXT NOT NULL,
		active     INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_webhook_endpoints_team ON webhook_endpoints(team_id);

	CREATE TABLE IF NOT EXISTS webhook_deliveries (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint_id     INTEGER NOT NULL REFERENCES webhook_endpoints(id),
		event           TEXT NOT NULL,
		status          TEXT NOT NULL,
		response_status INTEGER,
		payload         TEXT,
		delivered_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_webhook_deliveries_endpoint
		ON webhook_deliveries(endpoint_id, delivered_at);

	CREATE TABLE IF NOT EXISTS usage_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id    INTEGER NOT NULL REFERENCES teams(id),
		project_id INTEGER REFERENCES projects(id),
		event_key  TEXT NOT NULL,
		quantity   INTEGER NOT NULL DEFAULT 1,
		properties TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_events_team_key
		ON usage_events(team_id, event_key, created_at);

	CREATE TABLE IF NOT EXISTS plans (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		code              TEXT NOT NULL,
		name              TEXT NOT NULL,
		stripe_product_id TEXT NOT NULL DEFAULT '',
		stripe_price_id   TEXT NOT NULL DEFAULT '',
		created_at        INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_code ON plans(code);

	CREATE TABLE IF NOT EXISTS features (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		code        TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_features_code ON features(code);

	CREATE TABLE IF NOT EXISTS plan_features (
		plan_id       INTEGER NOT NULL REFERENCES plans(id),
		feature_id    INTEGER NOT NULL REFERENCES features(id),
		included      INTEGER NOT NULL DEFAULT 1,
		limit_monthly INTEGER,
		PRIMARY KEY (plan_id, feature_id)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init store schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity (used for readiness probes).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// scanner is an interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableTimeUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func nullableUnixTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	ts := time.Unix(v.Int64, 0).UTC()
	return &ts
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
