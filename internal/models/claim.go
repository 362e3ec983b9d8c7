package models

import (
	"time"

	"github.com/google/uuid"
)

// Claim status enums. accepted and expired are terminal for the claim;
// rejected loops the task back to open.
const (
	ClaimStatusClaimed   = "claimed"
	ClaimStatusSubmitted = "submitted"
	ClaimStatusAccepted  = "accepted"
	ClaimStatusRejected  = "rejected"
	ClaimStatusExpired   = "expired"
)

type Claim struct {
	ID             uuid.UUID  `json:"id"`
	TaskID         uuid.UUID  `json:"task_id"`
	UserID         uuid.UUID  `json:"user_id"`
	Status         string     `json:"status"`
	ClaimedAt      time.Time  `json:"claimed_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	Submission     *string    `json:"submission,omitempty"`
	SubmissionURL  *string    `json:"submission_url,omitempty"`
	SubmissionCode *string    `json:"-"`
	RejectReason   *string    `json:"reject_reason,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
}
