package models

import (
	"time"

	"github.com/google/uuid"
)

// RankingsResponse is one page of ranking history.
type RankingsResponse struct {
	Observations []RankingObservation `json:"observations"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

// ReportResponse bundles one aggregation window per metric for a keyword set.
type ReportResponse struct {
	ProjectID   uuid.UUID                     `json:"project_id"`
	Keywords    []string                      `json:"keywords"`
	From        string                        `json:"from"`
	To          string                        `json:"to"`
	Granularity string                        `json:"granularity"`
	Refreshed   bool                          `json:"refreshed"`
	Windows     map[string]*AggregationWindow `json:"windows"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

// ConfigCheckResponse reports which settings are present, never their values.
type ConfigCheckResponse struct {
	Env        string          `json:"env"`
	Settings   map[string]bool `json:"settings"`
	Database   string          `json:"database"`
	SharedTier bool            `json:"shared_cache"`
}
