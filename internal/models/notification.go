package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification type vocabulary.
const (
	NotificationTaskAccepted  = "task_accepted"
	NotificationTaskRejected  = "task_rejected"
	NotificationTaskMessage   = "task_message"
	NotificationTaskClaimed   = "task_claimed"
	NotificationTaskSubmitted = "task_submitted"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Content   *string    `json:"content,omitempty"`
	Link      *string    `json:"link,omitempty"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
