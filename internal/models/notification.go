package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification type enum.
const (
	NotificationTask       = "task"
	NotificationSubmission = "submission"
	NotificationPayment    = "payment"
	NotificationSystem     = "system"
)

type Notification struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Type         string     `json:"type"`
	ActionRoute  string     `json:"action_route"`
	TaskID       *uuid.UUID `json:"task_id,omitempty"`
	SubmissionID *uuid.UUID `json:"submission_id,omitempty"`
	IsRead       bool       `json:"is_read"`
	CreatedAt    time.Time  `json:"created_at"`
}
