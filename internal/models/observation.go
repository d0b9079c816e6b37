package models

import (
	"time"

	"github.com/google/uuid"
)

// RankingObservation records where a keyword ranked on one engine/locale at one instant.
// Rows are append-only.
type RankingObservation struct {
	ID         int64     `json:"id"`
	KeywordID  uuid.UUID `json:"keyword_id"`
	Keyword    string    `json:"keyword"`
	Engine     string    `json:"engine"`
	Locale     string    `json:"locale"`
	Position   int       `json:"position"`
	ObservedAt time.Time `json:"observed_at"`
}
