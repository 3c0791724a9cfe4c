package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/teamplane/teamplane/internal/apperrors"
)

const projectColumns = `id, team_id, name, slug, created_at, updated_at`

// CreateProject inserts a project. Slugs are globally unique; a duplicate
// surfaces as Conflict.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (team_id, name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.TeamID, p.Name, p.Slug, now.Unix(), now.Unix(),
	)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return apperrors.Conflict("create_project", "project", err)
		}
		return apperrors.Internal("create_project", "project", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperrors.Internal("create_project", "project", fmt.Errorf("insert returned no row: %w", err))
	}
	p.ID = id
	return nil
}

// GetProjectBySlug returns the project with the given slug.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+`
		FROM projects WHERE slug = ?`, slug)
	p, err := scanProject(row)
	if err != nil {
		return nil, apperrors.Internal("get_project_by_slug", "project", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("get_project_by_slug", "project")
	}
	return p, nil
}

// ListProjectsByTeam returns the team's projects, newest first.
func (s *Store) ListProjectsByTeam(ctx context.Context, teamID int64) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+`
		FROM projects WHERE team_id = ?
		ORDER BY created_at DESC`, teamID)
	if err != nil {
		return nil, apperrors.Internal("list_projects", "project", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, apperrors.Internal("list_projects", "project", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func scanProject(sc scanner) (*Project, error) {
	var p Project
	var createdAt, updatedAt int64

	err := sc.Scan(&p.ID, &p.TeamID, &p.Name, &p.Slug, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}
