// Package notify is the transactional notification outbox. Domain services
// enqueue a river job in the same database transaction as the state change;
// the worker persists the notification record once the transaction commits.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/taskmint/backend/internal/models"
)

type UserNotificationArgs struct {
	AccountID    uuid.UUID  `json:"account_id"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Type         string     `json:"type"`
	ActionRoute  string     `json:"action_route"`
	TaskID       *uuid.UUID `json:"task_id,omitempty"`
	SubmissionID *uuid.UUID `json:"submission_id,omitempty"`
}

func (UserNotificationArgs) Kind() string { return "notify_user" }

// Notifier enqueues a notification within the caller's transaction, so the
// record only materializes if the surrounding operation commits.
type Notifier interface {
	NotifyTx(ctx context.Context, tx pgx.Tx, args UserNotificationArgs) error
}

// InsertTxFunc enqueues the job; typically a closure over river.Client.InsertTx.
type InsertTxFunc func(ctx context.Context, tx pgx.Tx, args UserNotificationArgs) error

type Enqueuer struct {
	insert InsertTxFunc
}

func NewEnqueuer(insert InsertTxFunc) *Enqueuer {
	return &Enqueuer{insert: insert}
}

var _ Notifier = (*Enqueuer)(nil)

func (e *Enqueuer) NotifyTx(ctx context.Context, tx pgx.Tx, args UserNotificationArgs) error {
	if args.ActionRoute == "" {
		args.ActionRoute = "/dashboard"
	}
	return e.insert(ctx, tx, args)
}

// NotificationStore persists notification records. Satisfied by
// repository.NotificationRepo.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Worker persists enqueued notifications.
type Worker struct {
	river.WorkerDefaults[UserNotificationArgs]
	store NotificationStore
}

func NewWorker(store NotificationStore) *Worker {
	return &Worker{store: store}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[UserNotificationArgs]) error {
	args := job.Args
	return w.store.Create(ctx, &models.Notification{
		ID:           uuid.New(),
		AccountID:    args.AccountID,
		Title:        args.Title,
		Message:      args.Message,
		Type:         args.Type,
		ActionRoute:  args.ActionRoute,
		TaskID:       args.TaskID,
		SubmissionID: args.SubmissionID,
	})
}
