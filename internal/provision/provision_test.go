package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/teamplane/teamplane/internal/email"
	"github.com/teamplane/teamplane/internal/identity"
	"github.com/teamplane/teamplane/internal/store"
)

type capturedEmail struct {
	to      string
	subject string
}

type recordingSender struct {
	sent []capturedEmail
	fail bool
}

func (r *recordingSender) Send(_ context.Context, msg email.Message) error {
	if r.fail {
		return errors.New("provider unavailable")
	}
	r.sent = append(r.sent, capturedEmail{to: msg.To, subject: msg.Subject})
	return nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *recordingSender) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	sender := &recordingSender{}
	svc := NewService(st, sender, "noreply@teamplane.dev", "Teamplane", "https://app.teamplane.dev")
	return svc, st, sender
}

func TestSignInFirstTime(t *testing.T) {
	svc, st, sender := newTestService(t)
	ctx := context.Background()
	claims := &identity.Claims{Subject: "usr_1", Provider: "clerk", Email: "A@X.com", Name: "Alex"}

	res, err := svc.SignIn(ctx, claims, "10.0.0.1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !res.Created {
		t.Error("expected first sign-in to create the user")
	}
	if res.User.Email != "a@x.com" {
		t.Errorf("email = %q, want lowercased a@x.com", res.User.Email)
	}
	if res.User.Role != store.UserRoleOwner {
		t.Errorf("role = %q, want owner", res.User.Role)
	}
	if res.Team.Name != "a@x.com's Team" {
		t.Errorf("team name = %q, want a@x.com's Team", res.Team.Name)
	}

	m, err := st.MembershipForUser(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("MembershipForUser: %v", err)
	}
	if m.Role != store.UserRoleOwner {
		t.Errorf("membership role = %q, want owner", m.Role)
	}

	entries, err := st.ListRecentActivity(ctx, res.User.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != store.ActivitySignUp {
		t.Errorf("activity = %+v, want one SIGN_UP entry", entries)
	}

	if len(sender.sent) != 1 || sender.sent[0].to != "a@x.com" {
		t.Errorf("sent = %+v, want one welcome email to a@x.com", sender.sent)
	}
	if !strings.Contains(sender.sent[0].subject, "Teamplane") {
		t.Errorf("subject = %q, want the app name", sender.sent[0].subject)
	}
}

func TestSignInSecondTimeIsIdempotent(t *testing.T) {
	svc, st, sender := newTestService(t)
	ctx := context.Background()
	claims := &identity.Claims{Subject: "usr_1", Provider: "clerk", Email: "a@x.com"}

	first, err := svc.SignIn(ctx, claims, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.SignIn(ctx, claims, "")
	if err != nil {
		t.Fatal(err)
	}

	if second.Created {
		t.Error("second sign-in should not create the user")
	}
	if second.User.ID != first.User.ID || second.Team.ID != first.Team.ID {
		t.Errorf("second sign-in resolved (%d, %d), want (%d, %d)",
			second.User.ID, second.Team.ID, first.User.ID, first.Team.ID)
	}

	// No second team, no second welcome email.
	if len(sender.sent) != 1 {
		t.Errorf("emails sent = %d, want 1", len(sender.sent))
	}
	entries, err := st.ListRecentActivity(ctx, first.User.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Action != store.ActivitySignIn {
		t.Errorf("activity = %+v, want SIGN_IN then SIGN_UP", entries)
	}
}

func TestSignInWithoutEmailClaim(t *testing.T) {
	svc, _, _ := newTestService(t)
	claims := &identity.Claims{Subject: "usr_8f2k", Provider: "clerk"}

	res, err := svc.SignIn(context.Background(), claims, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.User.Email != "user-usr_8f2k@clerk.local" {
		t.Errorf("email = %q, want synthetic placeholder", res.User.Email)
	}

	// Same subject resolves to the same row on repeat sign-ins.
	again, err := svc.SignIn(context.Background(), claims, "")
	if err != nil {
		t.Fatal(err)
	}
	if again.User.ID != res.User.ID {
		t.Errorf("repeat sign-in resolved user %d, want %d", again.User.ID, res.User.ID)
	}
}

func TestSignInEmailFailureKeepsLocalWrites(t *testing.T) {
	svc, st, sender := newTestService(t)
	sender.fail = true
	claims := &identity.Claims{Subject: "usr_1", Provider: "clerk", Email: "a@x.com"}

	res, err := svc.SignIn(context.Background(), claims, "")
	if err != nil {
		t.Fatalf("SignIn should succeed despite email failure: %v", err)
	}

	if _, err := st.GetUserByEmail(context.Background(), "a@x.com"); err != nil {
		t.Errorf("user should exist after email failure: %v", err)
	}
	if _, err := st.GetTeamByID(context.Background(), res.Team.ID); err != nil {
		t.Errorf("team should exist after email failure: %v", err)
	}
}

func TestResolveOrCreateUserExisting(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	existing := &store.User{Email: "a@x.com", Name: "Alex", Role: store.UserRoleOwner}
	if err := st.CreateUser(ctx, existing); err != nil {
		t.Fatal(err)
	}

	u, created, err := svc.ResolveOrCreateUser(ctx, &identity.Claims{Subject: "usr_1", Provider: "clerk", Email: "a@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("expected existing user to be resolved, not created")
	}
	if u.ID != existing.ID {
		t.Errorf("resolved user %d, want %d", u.ID, existing.ID)
	}
}
