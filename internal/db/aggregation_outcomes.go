package db

import (
	"context"

	"kwtrack/internal/models"
)

// IncrementAggregationOutcome upserts an aggregation outcome count.
func (d *DB) IncrementAggregationOutcome(ctx context.Context, metric, outcome string) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO aggregation_outcomes (metric, outcome, count, last_seen_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (metric, outcome) DO UPDATE
		SET count = aggregation_outcomes.count + 1, last_seen_at = NOW()
	`, metric, outcome)
	return err
}

// GetAllAggregationOutcomes returns all outcome rows for metrics export.
func (d *DB) GetAllAggregationOutcomes(ctx context.Context) ([]models.AggregationOutcome, error) {
	rows, err := d.Pool.Query(ctx, `SELECT metric, outcome, count, last_seen_at FROM aggregation_outcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.AggregationOutcome
	for rows.Next() {
		var o models.AggregationOutcome
		if err := rows.Scan(&o.Metric, &o.Outcome, &o.Count, &o.LastSeenAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
