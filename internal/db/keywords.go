package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"kwtrack/internal/models"
)

// CreateKeyword starts tracking a term for a project.
func (d *DB) CreateKeyword(ctx context.Context, kw *models.Keyword) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO keywords (project_id, term)
		VALUES ($1, $2)
		RETURNING id, tracked_since
	`, kw.ProjectID, kw.Term).Scan(&kw.ID, &kw.TrackedSince)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateKeyword
		}
		return err
	}
	return nil
}

// ListKeywords returns the keywords tracked for a project ordered by term.
func (d *DB) ListKeywords(ctx context.Context, projectID uuid.UUID) ([]models.Keyword, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, project_id, term, tracked_since
		FROM keywords
		WHERE project_id = $1
		ORDER BY term
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		var kw models.Keyword
		if err := rows.Scan(&kw.ID, &kw.ProjectID, &kw.Term, &kw.TrackedSince); err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

// ResolveKeywordIDs maps the given terms to keyword IDs within a project.
// Terms that are not tracked are absent from the result.
func (d *DB) ResolveKeywordIDs(ctx context.Context, projectID uuid.UUID, terms []string) (map[string]uuid.UUID, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT term, id
		FROM keywords
		WHERE project_id = $1 AND term = ANY($2)
	`, projectID, terms)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve keywords: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]uuid.UUID, len(terms))
	for rows.Next() {
		var term string
		var id uuid.UUID
		if err := rows.Scan(&term, &id); err != nil {
			return nil, err
		}
		ids[term] = id
	}
	return ids, rows.Err()
}

// CountKeywordsByProject returns the number of tracked keywords per project slug.
func (d *DB) CountKeywordsByProject(ctx context.Context) (map[string]int64, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT p.slug, COUNT(k.id)
		FROM projects p
		LEFT JOIN keywords k ON k.project_id = p.id
		GROUP BY p.slug
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var slug string
		var n int64
		if err := rows.Scan(&slug, &n); err != nil {
			return nil, err
		}
		counts[slug] = n
	}
	return counts, rows.Err()
}
