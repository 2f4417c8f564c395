package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskmint/backend/internal/ledger"
	"github.com/taskmint/backend/internal/models"
	"github.com/taskmint/backend/internal/notify"
	"github.com/taskmint/backend/internal/repository"
)

// SubmissionService owns slot consumption and the pending -> approved/rejected
// review transition.
type SubmissionService struct {
	pool        TxBeginner
	tasks       TaskStore
	submissions SubmissionStore
	accounts    AccountStore
	ledger      Ledger
	notifier    notify.Notifier
}

func NewSubmissionService(pool TxBeginner, tasks TaskStore, submissions SubmissionStore, accounts AccountStore, l Ledger, n notify.Notifier) *SubmissionService {
	return &SubmissionService{pool: pool, tasks: tasks, submissions: submissions, accounts: accounts, ledger: l, notifier: n}
}

// Submit creates a pending submission and claims one task slot. No coins move
// here; the reward was escrowed at task creation. Preconditions are checked
// in order so the worker sees the most specific failure, but the actual slot
// claim is a conditional update and the (task, worker) uniqueness lives in
// the database, so neither can be raced past.
func (s *SubmissionService) Submit(ctx context.Context, workerID, taskID uuid.UUID, details string, attachments []string) (*models.Submission, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if task.Status != models.TaskStatusActive {
		return nil, ErrTaskNotActive
	}
	if task.AvailableUnits <= 0 {
		return nil, ErrNoSlots
	}
	if !task.Deadline.After(time.Now()) {
		return nil, ErrDeadlinePassed
	}

	claimed, err := s.tasks.ConsumeSlot(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrNoSlots
	}

	if attachments == nil {
		attachments = []string{}
	}
	sub := &models.Submission{
		ID:          uuid.New(),
		TaskID:      taskID,
		WorkerID:    workerID,
		Details:     details,
		Attachments: attachments,
		Status:      models.SubmissionStatusPending,
	}
	if err := s.submissions.CreateTx(ctx, tx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			return nil, ErrDuplicateSubmission
		}
		return nil, err
	}

	if err := s.notifier.NotifyTx(ctx, tx, notify.UserNotificationArgs{
		AccountID:    task.BuyerID,
		Title:        "New task submission",
		Message:      fmt.Sprintf("A worker has submitted your task: %s", task.Title),
		Type:         models.NotificationSubmission,
		TaskID:       &task.ID,
		SubmissionID: &sub.ID,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// Review applies one terminal decision to a pending submission. Approval pays
// the worker the task reward out of escrow; rejection returns the slot to the
// pool. The transition is conditioned on the submission still being pending,
// so a second concurrent review fails cleanly.
func (s *SubmissionService) Review(ctx context.Context, submissionID, reviewerID uuid.UUID, decision, note string) (*models.Submission, error) {
	if !models.ValidReviewDecision(decision) {
		return nil, ErrInvalidDecision
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sub, err := s.submissions.GetByIDForUpdate(ctx, tx, submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	task, err := s.tasks.GetByIDForUpdate(ctx, tx, sub.TaskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if task.BuyerID != reviewerID {
		return nil, ErrNotOwner
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, ErrAlreadyReviewed
	}

	now := time.Now()
	transitioned, err := s.submissions.MarkReviewed(ctx, tx, submissionID, decision, reviewerID, note, now)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return nil, ErrAlreadyReviewed
	}
	sub.Status = decision
	sub.ReviewNote = note
	sub.ReviewedBy = &reviewerID
	sub.ReviewedAt = &now

	var notification notify.UserNotificationArgs
	switch decision {
	case models.SubmissionStatusApproved:
		if err := s.tasks.ApplyApproval(ctx, tx, task.ID); err != nil {
			return nil, err
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
			AccountID:    sub.WorkerID,
			Kind:         models.TxKindEarning,
			Amount:       task.RewardPerUnit,
			Description:  fmt.Sprintf("Earned from task: %s", task.Title),
			TaskID:       &task.ID,
			SubmissionID: &sub.ID,
		}); err != nil {
			return nil, err
		}
		if err := s.accounts.IncrementWorkerStats(ctx, tx, sub.WorkerID, 1, task.RewardPerUnit); err != nil {
			return nil, err
		}
		notification = notify.UserNotificationArgs{
			AccountID:    sub.WorkerID,
			Title:        "Submission approved",
			Message:      fmt.Sprintf("Your submission for %q was approved. You earned %d coins.", task.Title, task.RewardPerUnit),
			Type:         models.NotificationSubmission,
			TaskID:       &task.ID,
			SubmissionID: &sub.ID,
		}
	case models.SubmissionStatusRejected:
		if err := s.tasks.ApplyRejection(ctx, tx, task.ID); err != nil {
			return nil, err
		}
		notification = notify.UserNotificationArgs{
			AccountID:    sub.WorkerID,
			Title:        "Submission rejected",
			Message:      fmt.Sprintf("Your submission for %q was rejected.", task.Title),
			Type:         models.NotificationSubmission,
			TaskID:       &task.ID,
			SubmissionID: &sub.ID,
		}
	}

	if err := s.notifier.NotifyTx(ctx, tx, notification); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}
