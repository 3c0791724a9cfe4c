package store

import (
	"context"
	"errors"
	"testing"

	"github.com/teamplane/teamplane/internal/apperrors"
)

func TestAPIKeyLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, team := setupTeam(t, s)

	key, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if hash != HashAPIKey(key) {
		t.Fatalf("hash = %q, want digest of the plaintext", hash)
	}
	k := &APIKey{TeamID: team.ID, Name: "ci", KeyHash: hash}
	if err := s.CreateAPIKey(ctx, k); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	got, err := s.LookupAPIKeyByHash(ctx, hash)
	if err != nil {
		t.Fatalf("LookupAPIKeyByHash: %v", err)
	}
	if got.ID != k.ID || got.TeamID != team.ID {
		t.Errorf("lookup = %+v, want id %d team %d", got, k.ID, team.ID)
	}
	if got.LastUsedAt != nil {
		t.Error("expected LastUsedAt to be nil before first use")
	}

	if err := s.TouchAPIKey(ctx, k.ID); err != nil {
		t.Fatalf("TouchAPIKey: %v", err)
	}
	got, err = s.LookupAPIKeyByHash(ctx, hash)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastUsedAt == nil {
		t.Error("expected LastUsedAt after touch")
	}

	if err := s.RevokeAPIKey(ctx, k.ID); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}
	if _, err := s.LookupAPIKeyByHash(ctx, hash); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("revoked key lookup err = %v, want ErrNotFound", err)
	}

	// The row is kept for auditability; the team listing still shows it.
	keys, err := s.ListAPIKeysByTeam(ctx, team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].RevokedAt == nil {
		t.Fatalf("keys = %+v, want one revoked key", keys)
	}
}

func TestLookupAPIKeyUnknownHash(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LookupAPIKeyByHash(context.Background(), HashAPIKey("tp_bogus")); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
