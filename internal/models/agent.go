package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is an automated task creator, authenticated via API key.
type Agent struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
