package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"kwtrack/internal/models"
)

// GetAggregationWindow loads a persisted window by its aggregation key.
func (d *DB) GetAggregationWindow(ctx context.Context, key string) (*models.AggregationWindow, error) {
	var w models.AggregationWindow
	var buckets []byte
	err := d.Pool.QueryRow(ctx, `
		SELECT cache_key, project_id, keywords, range_start, range_end, metric, granularity,
			engine, locale, value, sample_count, buckets, computed_at
		FROM aggregation_windows
		WHERE cache_key = $1
	`, key).Scan(
		&w.Key,
		&w.ProjectID,
		&w.Keywords,
		&w.RangeStart,
		&w.RangeEnd,
		&w.Metric,
		&w.Granularity,
		&w.Engine,
		&w.Locale,
		&w.Value,
		&w.SampleCount,
		&buckets,
		&w.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWindowNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(buckets, &w.Buckets); err != nil {
		return nil, fmt.Errorf("failed to decode buckets for %s: %w", key, err)
	}
	return &w, nil
}

// SaveAggregationWindow upserts a computed window. A window never replaces a newer one.
func (d *DB) SaveAggregationWindow(ctx context.Context, w *models.AggregationWindow) error {
	buckets, err := json.Marshal(w.Buckets)
	if err != nil {
		return fmt.Errorf("failed to encode buckets: %w", err)
	}

	_, err = d.Pool.Exec(ctx, `
		INSERT INTO aggregation_windows (cache_key, project_id, keywords, range_start, range_end,
			metric, granularity, engine, locale, value, sample_count, buckets, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (cache_key) DO UPDATE
		SET value = EXCLUDED.value,
			sample_count = EXCLUDED.sample_count,
			buckets = EXCLUDED.buckets,
			computed_at = EXCLUDED.computed_at
		WHERE aggregation_windows.computed_at <= EXCLUDED.computed_at
	`,
		w.Key,
		w.ProjectID,
		w.Keywords,
		w.RangeStart,
		w.RangeEnd,
		w.Metric,
		w.Granularity,
		w.Engine,
		w.Locale,
		w.Value,
		w.SampleCount,
		buckets,
		w.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save aggregation window: %w", err)
	}
	return nil
}

// DeleteAggregationWindows discards every persisted window of a project.
func (d *DB) DeleteAggregationWindows(ctx context.Context, projectID uuid.UUID) (int64, error) {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM aggregation_windows WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
