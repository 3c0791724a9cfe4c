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

const invitationColumns = `id, team_id, email, role, invited_by, invited_at, status`

// CreateInvitation records a pending invitation.
func (s *Store) CreateInvitation(ctx context.Context, inv *Invitation) error {
	if inv == nil {
		return fmt.Errorf("invitation is nil")
	}
	inv.Email = strings.ToLower(inv.Email)
	inv.InvitedAt = time.Now().UTC()
	inv.Status = InvitationPending

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (team_id, email, role, invited_by, invited_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.TeamID, inv.Email, string(inv.Role), inv.InvitedBy,
		inv.InvitedAt.Unix(), string(inv.Status),
	)
	if err != nil {
		return apperrors.Internal("create_invitation", "invitation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("create_invitation", "invitation", fmt.Errorf("insert returned no row: %w", err))
	}
	inv.ID = id
	return nil
}

// GetInvitation returns the invitation with the given ID.
func (s *Store) GetInvitation(ctx context.Context, id int64) (*Invitation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invitationColumns+`
		FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		return nil, apperrors.Internal("get_invitation", "invitation", err)
	}
	if inv == nil {
		return nil, apperrors.NotFound("get_invitation", "invitation")
	}
	return inv, nil
}

// ListPendingInvitations returns the pending invitations for a team, newest
// first.
func (s *Store) ListPendingInvitations(ctx context.Context, teamID int64) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+invitationColumns+`
		FROM invitations WHERE team_id = ? AND status = ?
		ORDER BY invited_at DESC`, teamID, string(InvitationPending))
	if err != nil {
		return nil, apperrors.Internal("list_pending_invitations", "invitation", err)
	}
	defer rows.Close()

	var invitations []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, apperrors.Internal("list_pending_invitations", "invitation", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// AcceptInvitation marks a pending invitation accepted and creates the
// membership in one transaction. Only pending invitations can be accepted;
// anything else is a Conflict.
func (s *Store) AcceptInvitation(ctx context.Context, invitationID, userID int64) (*TeamMember, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Internal("accept_invitation", "invitation", fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+invitationColumns+`
		FROM invitations WHERE id = ?`, invitationID)
	inv, err := scanInvitation(row)
	if err != nil {
		return nil, apperrors.Internal("accept_invitation", "invitation", err)
	}
	if inv == nil {
		return nil, apperrors.NotFound("accept_invitation", "invitation")
	}
	if inv.Status != InvitationPending {
		return nil, apperrors.Conflict("accept_invitation", "invitation",
			fmt.Errorf("invitation status is %q", inv.Status))
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE invitations SET status = ? WHERE id = ? AND status = ?`,
		string(InvitationAccepted), invitationID, string(InvitationPending))
	if err != nil {
		return nil, apperrors.Internal("accept_invitation", "invitation", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, apperrors.Conflict("accept_invitation", "invitation",
			errors.New("invitation already resolved"))
	}

	now := time.Now().UTC()
	memberRes, err := tx.ExecContext(ctx, `
		INSERT INTO team_members (user_id, team_id, role, joined_at)
		VALUES (?, ?, ?, ?)`, userID, inv.TeamID, string(inv.Role), now.Unix())
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("accept_invitation", "team_member", err)
		}
		return nil, apperrors.Internal("accept_invitation", "team_member", err)
	}
	memberID, err := memberRes.LastInsertId()
	if err != nil {
		return nil, apperrors.Internal("accept_invitation", "team_member", fmt.Errorf("insert returned no row: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("accept_invitation", "invitation", fmt.Errorf("commit: %w", err))
	}

	return &TeamMember{
		ID:       memberID,
		UserID:   userID,
		TeamID:   inv.TeamID,
		Role:     inv.Role,
		JoinedAt: now,
	}, nil
}

// RevokeInvitation marks a pending invitation revoked.
func (s *Store) RevokeInvitation(ctx context.Context, invitationID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET status = ? WHERE id = ? AND status = ?`,
		string(InvitationRevoked), invitationID, string(InvitationPending))
	if err != nil {
		return apperrors.Internal("revoke_invitation", "invitation", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("revoke_invitation", "invitation")
	}
	return nil
}

func scanInvitation(sc scanner) (*Invitation, error) {
	var inv Invitation
	var role, status string
	var invitedAt int64

	err := sc.Scan(&inv.ID, &inv.TeamID, &inv.Email, &role, &inv.InvitedBy, &invitedAt, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan invitation: %w", err)
	}

	inv.Role = UserRole(role)
	inv.Status = InvitationStatus(status)
	inv.InvitedAt = time.Unix(invitedAt, 0).UTC()
	return &inv, nil
}
