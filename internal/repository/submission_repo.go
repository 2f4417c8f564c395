package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmint/backend/internal/models"
)

// ErrDuplicateSubmission surfaces the (task_id, worker_id) unique violation.
// The constraint, not an application pre-check, is what makes the
// one-submission-per-worker rule race-proof.
var ErrDuplicateSubmission = errors.New("worker already submitted to this task")

const submissionCols = `id, task_id, worker_id, details, attachments, status,
	review_note, reviewed_by, reviewed_at, created_at, updated_at`

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.ID, &s.TaskID, &s.WorkerID, &s.Details, &s.Attachments, &s.Status,
		&s.ReviewNote, &s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSubmissions(rows pgx.Rows) ([]*models.Submission, error) {
	defer rows.Close()
	var list []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// CreateTx inserts a submission inside the given transaction. A unique
// violation on (task_id, worker_id) maps to ErrDuplicateSubmission.
func (r *SubmissionRepo) CreateTx(ctx context.Context, tx pgx.Tx, s *models.Submission) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO submissions (id, task_id, worker_id, details, attachments, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, s.ID, s.TaskID, s.WorkerID, s.Details, s.Attachments, s.Status).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSubmission
	}
	return err
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE id = $1`, id))
}

// GetByIDForUpdate locks the submission row. Call within a transaction.
func (r *SubmissionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	return scanSubmission(tx.QueryRow(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE id = $1 FOR UPDATE`, id))
}

// MarkReviewed applies the pending -> terminal transition. The status
// condition in the WHERE clause makes a second concurrent review a no-op;
// callers treat false as "already reviewed".
func (r *SubmissionRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, reviewerID uuid.UUID, note string, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE submissions
		SET status = $2, reviewed_by = $3, review_note = $4, reviewed_at = $5, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, status, reviewerID, note, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SubmissionRepo) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE worker_id = $1 ORDER BY created_at DESC`, workerID)
	if err != nil {
		return nil, err
	}
	return scanSubmissions(rows)
}

// ListForBuyer returns submissions against any task owned by the buyer.
func (r *SubmissionRepo) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.task_id, s.worker_id, s.details, s.attachments, s.status,
		       s.review_note, s.reviewed_by, s.reviewed_at, s.created_at, s.updated_at
		FROM submissions s
		JOIN tasks t ON t.id = s.task_id
		WHERE t.buyer_id = $1
		ORDER BY s.created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	return scanSubmissions(rows)
}

// CountByWorker returns total and pending submission counts for a worker.
func (r *SubmissionRepo) CountByWorker(ctx context.Context, workerID uuid.UUID) (total, pending int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = 'pending')
		FROM submissions WHERE worker_id = $1
	`, workerID).Scan(&total, &pending)
	return total, pending, err
}
