package store

import (
	"context"
	"errors"
	"testing"

	"github.com/teamplane/teamplane/internal/apperrors"
)

func TestInvitationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, team := setupTeam(t, s)

	inv := &Invitation{
		TeamID:    team.ID,
		Email:     "New@X.com",
		Role:      UserRoleMember,
		InvitedBy: owner.ID,
	}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}
	if inv.Email != "new@x.com" {
		t.Errorf("email = %q, want lowercased new@x.com", inv.Email)
	}
	if inv.Status != InvitationPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}

	pending, err := s.ListPendingInvitations(ctx, team.ID)
	if err != nil {
		t.Fatalf("ListPendingInvitations: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != inv.ID {
		t.Fatalf("pending = %+v, want the created invitation", pending)
	}

	invitee := createTestUser(t, s, "new@x.com")
	m, err := s.AcceptInvitation(ctx, inv.ID, invitee.ID)
	if err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	if m.TeamID != team.ID || m.UserID != invitee.ID || m.Role != UserRoleMember {
		t.Errorf("membership = %+v, want team %d user %d role member", m, team.ID, invitee.ID)
	}

	got, err := s.GetInvitation(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != InvitationAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}

	pending, err = s.ListPendingInvitations(ctx, team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after accept = %d, want 0", len(pending))
	}
}

func TestAcceptInvitationTwiceConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, team := setupTeam(t, s)

	inv := &Invitation{TeamID: team.ID, Email: "new@x.com", Role: UserRoleMember, InvitedBy: owner.ID}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatal(err)
	}
	invitee := createTestUser(t, s, "new@x.com")
	if _, err := s.AcceptInvitation(ctx, inv.ID, invitee.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AcceptInvitation(ctx, inv.ID, invitee.ID); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("second accept err = %v, want ErrConflict", err)
	}
}

func TestAcceptRevokedInvitationConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, team := setupTeam(t, s)

	inv := &Invitation{TeamID: team.ID, Email: "new@x.com", Role: UserRoleMember, InvitedBy: owner.ID}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatal(err)
	}
	if err := s.RevokeInvitation(ctx, inv.ID); err != nil {
		t.Fatalf("RevokeInvitation: %v", err)
	}

	invitee := createTestUser(t, s, "new@x.com")
	if _, err := s.AcceptInvitation(ctx, inv.ID, invitee.ID); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("accept after revoke err = %v, want ErrConflict", err)
	}
}

func TestAcceptInvitationNotFound(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "a@x.com")

	if _, err := s.AcceptInvitation(context.Background(), 42, u.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRevokeInvitationOnlyWhilePending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, team := setupTeam(t, s)

	inv := &Invitation{TeamID: team.ID, Email: "new@x.com", Role: UserRoleMember, InvitedBy: owner.ID}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatal(err)
	}
	invitee := createTestUser(t, s, "new@x.com")
	if _, err := s.AcceptInvitation(ctx, inv.ID, invitee.ID); err != nil {
		t.Fatal(err)
	}

	// A resolved invitation is no longer visible to revoke.
	if err := s.RevokeInvitation(ctx, inv.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("revoke accepted err = %v, want ErrNotFound", err)
	}
}
