package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskmint/backend/internal/ledger"
	"github.com/taskmint/backend/internal/models"
	"github.com/taskmint/backend/internal/payments"
)

// The services own their dependency contracts; the repository package
// satisfies them. Keeping them minimal lets tests swap in-memory fakes.

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Ledger records one balance movement plus its audit entry.
type Ledger interface {
	Record(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	IncrementBuyerStats(ctx context.Context, tx pgx.Tx, id uuid.UUID, tasksDelta, spentDelta int) error
	IncrementWorkerStats(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedDelta, earningsDelta int) error
}

type TaskStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	ConsumeSlot(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	ApplyApproval(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ApplyRejection(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	UpdateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type SubmissionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, s *models.Submission) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error)
	MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, reviewerID uuid.UUID, note string, at time.Time) (bool, error)
}

type WithdrawalStore interface {
	Create(ctx context.Context, w *models.WithdrawalRequest) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error)
	MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (bool, error)
}

type PaymentSessionStore interface {
	Create(ctx context.Context, p *models.PaymentSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.PaymentSession, error)
	MarkDelivered(ctx context.Context, tx pgx.Tx, sessionID string) (bool, error)
}

type TransactionReader interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error)
}

// PaymentConfirmer reports the provider's view of a checkout session. The
// poll-triggered settle path must observe a paid confirmation before any
// coins move.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, sessionID string) (payments.Confirmation, error)
}
