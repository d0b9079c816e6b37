package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"kwtrack/internal/models"
)

const projectColumns = `id, slug, name, created_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectByID retrieves a project by ID.
func (d *DB) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return scanProject(d.Pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
}

// GetProjectBySlug retrieves a project by its slug.
func (d *DB) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	return scanProject(d.Pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE slug = $1`, slug))
}

// UpsertProject inserts a project or updates the name of the project with the same slug.
func (d *DB) UpsertProject(ctx context.Context, project *models.Project) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO projects (slug, name)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at
	`, project.Slug, project.Name).Scan(&project.ID, &project.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

// ListProjects returns all projects ordered by slug.
func (d *DB) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
