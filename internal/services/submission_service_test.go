package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskmint/backend/internal/models"
)

func newSubmissionService(accounts *mockAccounts, tasks *mockTasks, subs *mockSubmissions) (*SubmissionService, *mockLedger, *mockNotifier) {
	l := newMockLedger(accounts)
	n := &mockNotifier{}
	return NewSubmissionService(&fakeDB{}, tasks, subs, accounts, l, n), l, n
}

func TestSubmit_ClaimsSlot(t *testing.T) {
	buyer := uuid.New()
	worker := uuid.New()
	task := activeTask(buyer, 10, 3)
	accounts := newMockAccounts(&models.Account{ID: worker}, &models.Account{ID: buyer})
	tasks := newMockTasks(task)
	subs := newMockSubmissions()
	svc, _, notifier := newSubmissionService(accounts, tasks, subs)

	sub, err := svc.Submit(context.Background(), worker, task.ID, "done, see attachment", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if sub.Status != models.SubmissionStatusPending {
		t.Errorf("status: got %s, want pending", sub.Status)
	}
	if sub.Attachments == nil {
		t.Error("attachments should be normalized to an empty slice")
	}
	got, _ := tasks.get(task.ID)
	if got.AvailableUnits != 2 || got.SubmissionCount != 1 {
		t.Errorf("slots: got available=%d submissions=%d, want 2/1", got.AvailableUnits, got.SubmissionCount)
	}

	// The buyer is told about the new submission.
	if notifier.count() != 1 {
		t.Fatalf("notifications: got %d, want 1", notifier.count())
	}
	note, _ := notifier.last()
	if note.AccountID != buyer {
		t.Error("notification should go to the buyer")
	}
	if note.SubmissionID == nil || *note.SubmissionID != sub.ID {
		t.Error("notification should reference the submission")
	}
}

func TestSubmit_PreconditionOrder(t *testing.T) {
	buyer := uuid.New()
	worker := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: worker})

	paused := activeTask(buyer, 10, 3)
	paused.Status = models.TaskStatusPaused

	full := activeTask(buyer, 10, 3)
	full.AvailableUnits = 0
	full.SubmissionCount = 3

	expired := activeTask(buyer, 10, 3)
	expired.Deadline = time.Now().Add(-time.Hour)

	tasks := newMockTasks(paused, full, expired)
	svc, _, _ := newSubmissionService(accounts, tasks, newMockSubmissions())
	ctx := context.Background()

	cases := []struct {
		name   string
		taskID uuid.UUID
		want   error
	}{
		{"unknown task", uuid.New(), ErrTaskNotFound},
		{"paused task", paused.ID, ErrTaskNotActive},
		{"no slots", full.ID, ErrNoSlots},
		{"past deadline", expired.ID, ErrDeadlinePassed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, worker, tc.taskID, "work", nil); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSubmit_DuplicateWorker(t *testing.T) {
	buyer := uuid.New()
	worker := uuid.New()
	task := activeTask(buyer, 10, 3)
	accounts := newMockAccounts(&models.Account{ID: worker}, &models.Account{ID: buyer})
	tasks := newMockTasks(task)
	svc, _, _ := newSubmissionService(accounts, tasks, newMockSubmissions())
	ctx := context.Background()

	if _, err := svc.Submit(ctx, worker, task.ID, "first", nil); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := svc.Submit(ctx, worker, task.ID, "second", nil); !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission, got: %v", err)
	}
}

func TestReview_ApprovePaysWorker(t *testing.T) {
	buyer := uuid.New()
	worker := uuid.New()
	task := activeTask(buyer, 25, 2)
	task.AvailableUnits = 1
	task.SubmissionCount = 1
	sub := &models.Submission{
		ID:       uuid.New(),
		TaskID:   task.ID,
		WorkerID: worker,
		Status:   models.SubmissionStatusPending,
	}
	accounts := newMockAccounts(&models.Account{ID: worker, Balance: 10}, &models.Account{ID: buyer})
	tasks := newMockTasks(task)
	subs := newMockSubmissions(sub)
	svc, l, notifier := newSubmissionService(accounts, tasks, subs)

	got, err := svc.Review(context.Background(), sub.ID, buyer, models.SubmissionStatusApproved, "nice work")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}

	if got.Status != models.SubmissionStatusApproved {
		t.Errorf("status: got %s, want approved", got.Status)
	}
	if got.ReviewedBy == nil || *got.ReviewedBy != buyer {
		t.Error("reviewed_by should be the buyer")
	}
	if bal := accounts.balance(worker); bal != 35 {
		t.Errorf("worker balance: got %d, want 35", bal)
	}
	earnings := l.byKind(models.TxKindEarning)
	if len(earnings) != 1 || earnings[0].Amount != 25 {
		t.Errorf("expected one earning of +25, got %+v", earnings)
	}
	if earnings[0].SubmissionID == nil || *earnings[0].SubmissionID != sub.ID {
		t.Error("earning should reference the submission")
	}

	acc := accounts.get(worker)
	if acc.CompletedTasks != 1 || acc.TotalEarnings != 25 {
		t.Errorf("worker stats: got completed=%d earnings=%d, want 1/25", acc.CompletedTasks, acc.TotalEarnings)
	}

	tk, _ := tasks.get(task.ID)
	if tk.ApprovedCount != 1 {
		t.Errorf("approved count: got %d, want 1", tk.ApprovedCount)
	}
	if tk.Status != models.TaskStatusActive {
		t.Errorf("task should stay active until all units approved, got %s", tk.Status)
	}

	note, _ := notifier.last()
	if note.AccountID != worker {
		t.Error("approval notification should go to the worker")
	}
}

func TestReview_FinalApprovalCompletesTask(t *testing.T) {
	buyer := uuid.New()
	worker := uuid.New()
	task := activeTask(buyer, 10, 2)
	task.ApprovedCount = 1
	task.AvailableUnits = 0
	task.SubmissionCount = 2
	sub := &models.Submission{ID: uuid.New(), TaskID: task.ID, WorkerID: worker, Status: models.SubmissionStatusPending}
	accounts := newMockAccounts(&models.Account{ID: worker}, &models.Account{ID: buyer})
	tasks := newMockTasks(task)
	svc, _, _ := newSubmissionService(accounts, tasks, newMockSubmissions(sub))

	if _, err := svc.Review(context.Background(), sub.ID, buyer, models.SubmissionStatusApproved, ""); err != nil {
		t.Fatalf("Review: %v", err)
	}
	tk, _ := tasks.get(task.ID)
	if tk.Status != models.TaskStatusCompleted {
		t.Errorf("task status: got %s, want completed", tk.Status)
	}
}

func TestReview_RejectReturnsSlot(t *testing.T) {
	buyer := uuid.New()
	worker := uuid.New()
	task := activeTask(buyer, 25, 2)
	task.AvailableUnits = 1
	task.SubmissionCount = 1
	sub := &models.Submission{ID: uuid.New(), TaskID: task.ID, WorkerID: worker, Status: models.SubmissionStatusPending}
	accounts := newMockAccounts(&models.Account{ID: worker, Balance: 10}, &models.Account{ID: buyer})
	tasks := newMockTasks(task)
	svc, l, _ := newSubmissionService(accounts, tasks, newMockSubmissions(sub))

	got, err := svc.Review(context.Background(), sub.ID, buyer, models.SubmissionStatusRejected, "wrong format")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}

	if got.Status != models.SubmissionStatusRejected {
		t.Errorf("status: got %s, want rejected", got.Status)
	}
	// No coins move on rejection; the slot goes back to the pool.
	if bal := accounts.balance(worker); bal != 10 {
		t.Errorf("worker balance: got %d, want 10", bal)
	}
	if n := len(l.all()); n != 0 {
		t.Errorf("ledger entries: got %d, want 0", n)
	}
	tk, _ := tasks.get(task.ID)
	if tk.AvailableUnits != 2 || tk.RejectedCount != 1 {
		t.Errorf("task after reject: got available=%d rejected=%d, want 2/1", tk.AvailableUnits, tk.RejectedCount)
	}
}

func TestReview_Guards(t *testing.T) {
	buyer := uuid.New()
	worker := uuid.New()
	task := activeTask(buyer, 10, 2)
	reviewed := &models.Submission{ID: uuid.New(), TaskID: task.ID, WorkerID: worker, Status: models.SubmissionStatusApproved}
	pending := &models.Submission{ID: uuid.New(), TaskID: task.ID, WorkerID: uuid.New(), Status: models.SubmissionStatusPending}
	accounts := newMockAccounts(&models.Account{ID: worker}, &models.Account{ID: buyer})
	tasks := newMockTasks(task)
	svc, _, _ := newSubmissionService(accounts, tasks, newMockSubmissions(reviewed, pending))
	ctx := context.Background()

	if _, err := svc.Review(ctx, pending.ID, buyer, "maybe", ""); !errors.Is(err, ErrInvalidDecision) {
		t.Errorf("expected ErrInvalidDecision, got: %v", err)
	}
	if _, err := svc.Review(ctx, uuid.New(), buyer, models.SubmissionStatusApproved, ""); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("expected ErrSubmissionNotFound, got: %v", err)
	}
	if _, err := svc.Review(ctx, pending.ID, uuid.New(), models.SubmissionStatusApproved, ""); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got: %v", err)
	}
	if _, err := svc.Review(ctx, reviewed.ID, buyer, models.SubmissionStatusApproved, ""); !errors.Is(err, ErrAlreadyReviewed) {
		t.Errorf("expected ErrAlreadyReviewed, got: %v", err)
	}
}
