package store

import (
	"context"
	"errors"
	"testing"

	"github.com/teamplane/teamplane/internal/apperrors"
)

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, team := setupTeam(t, s)

	p := &Project{TeamID: team.ID, Name: "Docs Site", Slug: "docs-site"}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected project ID to be set")
	}

	got, err := s.GetProjectBySlug(ctx, "docs-site")
	if err != nil {
		t.Fatalf("GetProjectBySlug: %v", err)
	}
	if got.ID != p.ID || got.Name != "Docs Site" {
		t.Errorf("got = %+v, want id %d name Docs Site", got, p.ID)
	}

	if _, err := s.GetProjectBySlug(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing slug err = %v, want ErrNotFound", err)
	}
}

func TestCreateProjectDuplicateSlugConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, team := setupTeam(t, s)

	if err := s.CreateProject(ctx, &Project{TeamID: team.ID, Name: "A", Slug: "docs"}); err != nil {
		t.Fatal(err)
	}
	err := s.CreateProject(ctx, &Project{TeamID: team.ID, Name: "B", Slug: "docs"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("duplicate slug err = %v, want ErrConflict", err)
	}
}

func TestListProjectsByTeam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, team := setupTeam(t, s)
	otherOwner := createTestUser(t, s, "b@x.com")
	other, err := s.CreateTeamWithOwner(ctx, "Other", otherOwner.ID)
	if err != nil {
		t.Fatal(err)
	}

	for _, slug := range []string{"one", "two"} {
		if err := s.CreateProject(ctx, &Project{TeamID: team.ID, Name: slug, Slug: slug}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateProject(ctx, &Project{TeamID: other.ID, Name: "three", Slug: "three"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListProjectsByTeam(ctx, team.ID)
	if err != nil {
		t.Fatalf("ListProjectsByTeam: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("projects = %d, want 2", len(got))
	}
}
