package models

import (
	"time"

	"github.com/google/uuid"
)

// Keyword is a search term tracked for a project.
type Keyword struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Term         string    `json:"term"`
	TrackedSince time.Time `json:"tracked_since"`
}
