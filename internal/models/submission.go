package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission status enum. Pending is the only non-terminal state.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

type Submission struct {
	ID          uuid.UUID  `json:"id"`
	TaskID      uuid.UUID  `json:"task_id"`
	WorkerID    uuid.UUID  `json:"worker_id"`
	Details     string     `json:"details"`
	Attachments []string   `json:"attachments"`
	Status      string     `json:"status"`
	ReviewNote  string     `json:"review_note"`
	ReviewedBy  *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ValidReviewDecision reports whether status is a legal terminal review state.
func ValidReviewDecision(status string) bool {
	return status == SubmissionStatusApproved || status == SubmissionStatusRejected
}
