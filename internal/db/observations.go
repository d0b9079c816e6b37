package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kwtrack/internal/models"
)

// ObservationFilter selects ranking observations for a keyset page.
// Start is inclusive and End exclusive. Rows strictly after (AfterTime, AfterID) are returned.
type ObservationFilter struct {
	KeywordIDs []uuid.UUID
	Start      time.Time
	End        time.Time
	Engine     string
	Locale     string
	AfterTime  time.Time
	AfterID    int64
	Limit      int
}

// ObservationsPage returns observations ordered by observed_at, then id, ascending.
func (d *DB) ObservationsPage(ctx context.Context, f ObservationFilter) ([]models.RankingObservation, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT o.id, o.keyword_id, k.term, o.engine, o.locale, o.position, o.observed_at
		FROM ranking_observations o
		JOIN keywords k ON k.id = o.keyword_id
		WHERE o.keyword_id = ANY($1)
		  AND o.observed_at >= $2 AND o.observed_at < $3
		  AND ($4::text = '' OR o.engine = $4::text)
		  AND ($5::text = '' OR o.locale = $5::text)
		  AND (o.observed_at, o.id) > ($6::timestamptz, $7::bigint)
		ORDER BY o.observed_at ASC, o.id ASC
		LIMIT $8
	`, f.KeywordIDs, f.Start, f.End, f.Engine, f.Locale, f.AfterTime, f.AfterID, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []models.RankingObservation
	for rows.Next() {
		var o models.RankingObservation
		if err := rows.Scan(&o.ID, &o.KeywordID, &o.Keyword, &o.Engine, &o.Locale, &o.Position, &o.ObservedAt); err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// InsertObservation appends a ranking observation and sets its ID.
func (d *DB) InsertObservation(ctx context.Context, o *models.RankingObservation) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO ranking_observations (keyword_id, engine, locale, position, observed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, o.KeywordID, o.Engine, o.Locale, o.Position, o.ObservedAt).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}
