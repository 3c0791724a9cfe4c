package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at, deleted_at`

// GetUserByEmail returns the non-deleted user with the given email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+`
		FROM users WHERE email = ? AND deleted_at IS NULL`, strings.ToLower(email))
	u, err := scanUser(row)
	if err != nil {
		return nil, apperrors.Internal("get_user_by_email", "user", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("get_user_by_email", "user")
	}
	return u, nil
}

// GetUserByID returns the user with the given ID, deleted or not.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+`
		FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, apperrors.Internal("get_user_by_id", "user", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("get_user_by_id", "user")
	}
	return u, nil
}

// CreateUser inserts a new user record. A concurrent insert for the same
// email surfaces as a Conflict so the caller can fall back to a re-read.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Email = strings.ToLower(u.Email)
	if u.Role == "" {
		u.Role = UserRoleMember
	}
	if u.PasswordHash == "" {
		u.PasswordHash = placeholderPasswordHash
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), now.Unix(), now.Unix(),
	)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return apperrors.Conflict("create_user", "user", err)
		}
		return apperrors.Internal("create_user", "user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		// Insert succeeded but yielded no row ID. This should be structurally
		// impossible; treat it as a fatal invariant violation.
		return apperrors.Internal("create_user", "user", fmt.Errorf("insert returned no row: %w", err))
	}
	u.ID = id
	return nil
}

// UpdateUser overwrites the user's name and role and bumps updated_at.
func (s *Store) UpdateUser(ctx context.Context, u *User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = ?, role = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		u.Name, string(u.Role), u.UpdatedAt.Unix(), u.ID,
	)
	if err != nil {
		return apperrors.Internal("update_user", "user", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("update_user", "user")
	}
	return nil
}

// SoftDeleteUser marks the user deleted. Rows are never removed.
func (s *Store) SoftDeleteUser(ctx context.Context, id int64) error {
	now := time.Now().UTC().Unix()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return apperrors.Internal("soft_delete_user", "user", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("soft_delete_user", "user")
	}
	return nil
}

// UserWithTeam is a user joined with the team of their first membership.
type UserWithTeam struct {
	User
	TeamID *int64 `json:"team_id,omitempty"`
}

// GetUserWithTeam returns the user and the team ID of their membership, if
// any.
func (s *Store) GetUserWithTeam(ctx context.Context, userID int64) (*UserWithTeam, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.password_hash, u.role,
			u.created_at, u.updated_at, u.deleted_at, tm.team_id
		FROM users u
		LEFT JOIN team_members tm ON u.id = tm.user_id
		WHERE u.id = ?
		LIMIT 1`, userID)

	var out UserWithTeam
	var role string
	var createdAt, updatedAt int64
	var deletedAt, teamID sql.NullInt64
	err := row.Scan(
		&out.ID, &out.Name, &out.Email, &out.PasswordHash, &role,
		&createdAt, &updatedAt, &deletedAt, &teamID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("get_user_with_team", "user")
		}
		return nil, apperrors.Internal("get_user_with_team", "user", err)
	}
	out.Role = UserRole(role)
	out.CreatedAt = time.Unix(createdAt, 0).UTC()
	out.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	out.DeletedAt = nullableUnixTime(deletedAt)
	if teamID.Valid {
		id := teamID.Int64
		out.TeamID = &id
	}
	return &out, nil
}

func scanUser(s scanner) (*User, error) {
	var u User
	var role string
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64

	err := s.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Role = UserRole(role)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	u.DeletedAt = nullableUnixTime(deletedAt)
	return &u, nil
}
