package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"-"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	Title          *string   `json:"title,omitempty"`
	Bio            *string   `json:"bio,omitempty"`
	Location       *string   `json:"location,omitempty"`
	Points         int       `json:"points"`
	TasksCompleted int       `json:"tasks_completed"`
	TasksAccepted  int       `json:"tasks_accepted"`
	CurrentStreak  int       `json:"current_streak"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
