package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

const teamColumns = `id, name, stripe_customer_id, stripe_subscription_id,
	stripe_product_id, plan_name, subscription_status, created_at, updated_at`

// GetTeamByID returns the team with the given ID.
func (s *Store) GetTeamByID(ctx context.Context, id int64) (*Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teamColumns+`
		FROM teams WHERE id = ?`, id)
	t, err := scanTeam(row)
	if err != nil {
		return nil, apperrors.Internal("get_team", "team", err)
	}
	if t == nil {
		return nil, apperrors.NotFound("get_team", "team")
	}
	return t, nil
}

// GetTeamByStripeCustomerID returns the team owning the given billing
// customer ID.
func (s *Store) GetTeamByStripeCustomerID(ctx context.Context, customerID string) (*Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teamColumns+`
		FROM teams WHERE stripe_customer_id = ?`, customerID)
	t, err := scanTeam(row)
	if err != nil {
		return nil, apperrors.Internal("get_team_by_customer", "team", err)
	}
	if t == nil {
		return nil, apperrors.NotFound("get_team_by_customer", "team")
	}
	return t, nil
}

// MembershipForUser returns the user's first team membership, or NotFound.
func (s *Store) MembershipForUser(ctx context.Context, userID int64) (*TeamMember, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, team_id, role, joined_at
		FROM team_members WHERE user_id = ?
		ORDER BY joined_at ASC LIMIT 1`, userID)
	m, err := scanMember(row)
	if err != nil {
		return nil, apperrors.Internal("membership_for_user", "team_member", err)
	}
	if m == nil {
		return nil, apperrors.NotFound("membership_for_user", "team_member")
	}
	return m, nil
}

// TeamMembers returns the member rows for a team joined with each member's
// display columns.
func (s *Store) TeamMembers(ctx context.Context, teamID int64) ([]MemberInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tm.id, tm.user_id, tm.team_id, tm.role, tm.joined_at, u.name, u.email
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = ?
		ORDER BY tm.joined_at ASC`, teamID)
	if err != nil {
		return nil, apperrors.Internal("team_members", "team_member", err)
	}
	defer rows.Close()

	var members []MemberInfo
	for rows.Next() {
		var m MemberInfo
		var role string
		var joinedAt int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.TeamID, &role, &joinedAt, &m.Name, &m.Email); err != nil {
			return nil, apperrors.Internal("team_members", "team_member", fmt.Errorf("scan member: %w", err))
		}
		m.Role = UserRole(role)
		m.JoinedAt = time.Unix(joinedAt, 0).UTC()
		members = append(members, m)
	}
	return members, rows.Err()
}

// TeamWithMembers returns a team plus its member list as two bounded queries.
func (s *Store) TeamWithMembers(ctx context.Context, teamID int64) (*TeamWithMembers, error) {
	team, err := s.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members, err := s.TeamMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &TeamWithMembers{Team: *team, Members: members}, nil
}

// CreateTeamWithOwner creates a team and its owner membership in a single
// transaction. A crash between the two writes leaves neither behind.
func (s *Store) CreateTeamWithOwner(ctx context.Context, name string, ownerID int64) (*Team, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Internal("create_team", "team", fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO teams (name, created_at, updated_at)
		VALUES (?, ?, ?)`, name, now.Unix(), now.Unix())
	if err != nil {
		return nil, apperrors.Internal("create_team", "team", err)
	}
	teamID, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.Internal("create_team", "team", fmt.Errorf("insert returned no row: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO team_members (user_id, team_id, role, joined_at)
		VALUES (?, ?, ?, ?)`, ownerID, teamID, string(UserRoleOwner), now.Unix()); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("create_team", "team_member", err)
		}
		return nil, apperrors.Internal("create_team", "team_member", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("create_team", "team", fmt.Errorf("commit: %w", err))
	}

	return &Team{
		ID:        teamID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddMember links a user to a team. Duplicate active memberships surface as
// Conflict.
func (s *Store) AddMember(ctx context.Context, teamID, userID int64, role UserRole) (*TeamMember, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (user_id, team_id, role, joined_at)
		VALUES (?, ?, ?, ?)`, userID, teamID, string(role), now.Unix())
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("add_member", "team_member", err)
		}
		return nil, apperrors.Internal("add_member", "team_member", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.Internal("add_member", "team_member", fmt.Errorf("insert returned no row: %w", err))
	}
	return &TeamMember{ID: id, UserID: userID, TeamID: teamID, Role: role, JoinedAt: now}, nil
}

// RemoveMember deletes a membership row.
func (s *Store) RemoveMember(ctx context.Context, teamID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM team_members WHERE team_id = ? AND user_id = ?`, teamID, userID)
	if err != nil {
		return apperrors.Internal("remove_member", "team_member", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("remove_member", "team_member")
	}
	return nil
}

// SubscriptionUpdate carries the subscription fields overwritten by the
// billing webhook collaborator. No status-transition validation happens here;
// callers only invoke this with payloads they have already verified.
type SubscriptionUpdate struct {
	StripeSubscriptionID string
	StripeProductID      string
	PlanName             string
	SubscriptionStatus   string
}

// UpdateTeamSubscription overwrites the team's subscription fields and bumps
// updated_at.
func (s *Store) UpdateTeamSubscription(ctx context.Context, teamID int64, upd SubscriptionUpdate) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE teams SET
			stripe_subscription_id = ?, stripe_product_id = ?,
			plan_name = ?, subscription_status = ?, updated_at = ?
		WHERE id = ?`,
		nullableString(upd.StripeSubscriptionID), nullableString(upd.StripeProductID),
		upd.PlanName, upd.SubscriptionStatus, now.Unix(), teamID,
	)
	if err != nil {
		return apperrors.Internal("update_team_subscription", "team", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("update_team_subscription", "team")
	}
	return nil
}

// AttachStripeCustomer records the billing customer ID on a team after
// checkout completes.
func (s *Store) AttachStripeCustomer(ctx context.Context, teamID int64, customerID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE teams SET stripe_customer_id = ?, updated_at = ?
		WHERE id = ?`, nullableString(customerID), now.Unix(), teamID)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return apperrors.Conflict("attach_stripe_customer", "team", err)
		}
		return apperrors.Internal("attach_stripe_customer", "team", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("attach_stripe_customer", "team")
	}
	return nil
}

func scanTeam(sc scanner) (*Team, error) {
	var t Team
	var customerID, subscriptionID, productID sql.NullString
	var createdAt, updatedAt int64

	err := sc.Scan(
		&t.ID, &t.Name, &customerID, &subscriptionID,
		&productID, &t.PlanName, &t.SubscriptionStatus, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan team: %w", err)
	}

	t.StripeCustomerID = customerID.String
	t.StripeSubscriptionID = subscriptionID.String
	t.StripeProductID = productID.String
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}

func scanMember(sc scanner) (*TeamMember, error) {
	var m TeamMember
	var role string
	var joinedAt int64

	err := sc.Scan(&m.ID, &m.UserID, &m.TeamID, &role, &joinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan team member: %w", err)
	}

	m.Role = UserRole(role)
	m.JoinedAt = time.Unix(joinedAt, 0).UTC()
	return &m, nil
}
