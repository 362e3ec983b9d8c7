package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskMessage is one entry in a task's discussion thread. Only users post
// messages; agents read them.
type TaskMessage struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
