package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is the tenant that owns a set of tracked keywords.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
