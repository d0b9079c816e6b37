package db

import (
	"context"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"kwtrack/internal/models"
	"kwtrack/internal/validation"
	"kwtrack/migrations"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// RunMigrations runs all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}

// SeedProject upserts a project by slug and makes sure every term is tracked.
// Terms are normalized before insert; existing keywords are left untouched.
func (d *DB) SeedProject(ctx context.Context, slug, name string, terms []string) (*models.Project, error) {
	project := &models.Project{Slug: slug, Name: name}
	if err := d.UpsertProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to seed project %s: %w", slug, err)
	}

	for _, raw := range terms {
		term := validation.NormalizeKeyword(raw)
		if !validation.ValidateKeyword(term) {
			return nil, fmt.Errorf("invalid keyword %q for project %s", raw, slug)
		}
		if _, err := d.Pool.Exec(ctx, `
			INSERT INTO keywords (project_id, term)
			VALUES ($1, $2)
			ON CONFLICT (project_id, term) DO NOTHING
		`, project.ID, term); err != nil {
			return nil, fmt.Errorf("failed to seed keyword %s: %w", term, err)
		}
	}

	return project, nil
}
