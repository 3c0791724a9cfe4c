package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

const apiKeyColumns = `id, team_id, name, key_hash, created_at, last_used_at, revoked_at`

// GenerateAPIKey returns a new key of the form "tp_" followed by 32 random
// hex characters, plus its SHA-256 hash. Only the hash is ever persisted.
func GenerateAPIKey() (plaintext, hash string, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	plaintext = "tp_" + hex.EncodeToString(b)
	return plaintext, HashAPIKey(plaintext), nil
}

// HashAPIKey returns the hex SHA-256 digest of the key material.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// CreateAPIKey persists a new key record carrying only the key hash.
func (s *Store) CreateAPIKey(ctx context.Context, k *APIKey) error {
	if k == nil {
		return fmt.Errorf("api key is nil")
	}
	if k.KeyHash == "" {
		return fmt.Errorf("api key hash is empty")
	}
	k.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (team_id, name, key_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		k.TeamID, k.Name, k.KeyHash, k.CreatedAt.Unix(),
	)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return apperrors.Conflict("create_api_key", "api_key", err)
		}
		return apperrors.Internal("create_api_key", "api_key", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("create_api_key", "api_key", fmt.Errorf("insert returned no row: %w", err))
	}
	k.ID = id
	return nil
}

// LookupAPIKeyByHash returns the active (non-revoked) key with the given
// hash.
func (s *Store) LookupAPIKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+`
		FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL`, hash)
	k, err := scanAPIKey(row)
	if err != nil {
		return nil, apperrors.Internal("lookup_api_key", "api_key", err)
	}
	if k == nil {
		return nil, apperrors.NotFound("lookup_api_key", "api_key")
	}
	return k, nil
}

// ListAPIKeysByTeam returns all of a team's keys, newest first.
func (s *Store) ListAPIKeysByTeam(ctx context.Context, teamID int64) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+apiKeyColumns+`
		FROM api_keys WHERE team_id = ?
		ORDER BY created_at DESC`, teamID)
	if err != nil {
		return nil, apperrors.Internal("list_api_keys", "api_key", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, apperrors.Internal("list_api_keys", "api_key", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

// TouchAPIKey records the key's last use time.
func (s *Store) TouchAPIKey(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		time.Now().UTC().Unix(), id)
	if err != nil {
		return apperrors.Internal("touch_api_key", "api_key", err)
	}
	return nil
}

// RevokeAPIKey marks the key revoked. Already-revoked keys are NotFound.
func (s *Store) RevokeAPIKey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC().Unix(), id)
	if err != nil {
		return apperrors.Internal("revoke_api_key", "api_key", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("revoke_api_key", "api_key")
	}
	return nil
}

func scanAPIKey(sc scanner) (*APIKey, error) {
	var k APIKey
	var createdAt int64
	var lastUsedAt, revokedAt sql.NullInt64

	err := sc.Scan(&k.ID, &k.TeamID, &k.Name, &k.KeyHash, &createdAt, &lastUsedAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}

	k.CreatedAt = time.Unix(createdAt, 0).UTC()
	k.LastUsedAt = nullableUnixTime(lastUsedAt)
	k.RevokedAt = nullableUnixTime(revokedAt)
	return &k, nil
}
