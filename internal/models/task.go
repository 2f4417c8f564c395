package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enum.
const (
	TaskStatusActive    = "active"
	TaskStatusPaused    = "paused"
	TaskStatusCompleted = "completed"
	TaskStatusCancelled = "cancelled"
)

type Task struct {
	ID              uuid.UUID `json:"id"`
	BuyerID         uuid.UUID `json:"buyer_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	SubmissionInfo  string    `json:"submission_info"`
	RewardPerUnit   int       `json:"reward_per_unit"`
	RequiredUnits   int       `json:"required_units"`
	AvailableUnits  int       `json:"available_units"`
	SubmissionCount int       `json:"submission_count"`
	ApprovedCount   int       `json:"approved_count"`
	RejectedCount   int       `json:"rejected_count"`
	Status          string    `json:"status"`
	Deadline        time.Time `json:"deadline"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Cost is the total coin reservation for the task: reward per unit times
// required units. The buyer is debited this amount at creation.
func (t *Task) Cost() int {
	return t.RewardPerUnit * t.RequiredUnits
}

// RefundableAmount is what the owning buyer gets back on deletion:
// everything except already-approved (paid-out) units.
func (t *Task) RefundableAmount() int {
	return (t.RequiredUnits - t.ApprovedCount) * t.RewardPerUnit
}

// ValidTaskTransition reports whether a task status change is legal.
// Terminal states (completed, cancelled) never transition out.
func ValidTaskTransition(from, to string) bool {
	switch from {
	case TaskStatusActive:
		return to == TaskStatusPaused || to == TaskStatusCompleted || to == TaskStatusCancelled
	case TaskStatusPaused:
		return to == TaskStatusActive || to == TaskStatusCancelled
	default:
		return false
	}
}
