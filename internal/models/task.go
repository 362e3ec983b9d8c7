package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enums. Status is a projection of the task's active claim: open
// means no active claim, assigned means a live claim, submitted means evidence
// is in review, closed means a claim was accepted.
const (
	TaskStatusOpen      = "open"
	TaskStatusAssigned  = "assigned"
	TaskStatusSubmitted = "submitted"
	TaskStatusClosed    = "closed"
)

// Evidence types a task can require from the claimant.
const (
	EvidenceTypeText = "text"
	EvidenceTypeLink = "link"
	EvidenceTypeFile = "file"
)

type Task struct {
	ID           uuid.UUID  `json:"id"`
	CreatorID    uuid.UUID  `json:"creator_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	RewardPoints int        `json:"reward_points"`
	EvidenceType string     `json:"evidence_type"`
	DynamicCode  string     `json:"-"`
	Status       string     `json:"status"`
	TimeoutHours int        `json:"timeout_hours"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
