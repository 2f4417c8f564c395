package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmint/backend/internal/models"
)

const taskCols = `id, buyer_id, title, description, submission_info, reward_per_unit,
	required_units, available_units, submission_count, approved_count, rejected_count,
	status, deadline, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.BuyerID, &t.Title, &t.Description, &t.SubmissionInfo, &t.RewardPerUnit,
		&t.RequiredUnits, &t.AvailableUnits, &t.SubmissionCount, &t.ApprovedCount, &t.RejectedCount,
		&t.Status, &t.Deadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows) ([]*models.Task, error) {
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// CreateTx inserts a task inside the given transaction.
func (r *TaskRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	return tx.QueryRow(ctx, `
		INSERT INTO tasks (id, buyer_id, title, description, submission_info,
			reward_per_unit, required_units, available_units, status, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, t.ID, t.BuyerID, t.Title, t.Description, t.SubmissionInfo,
		t.RewardPerUnit, t.RequiredUnits, t.AvailableUnits, t.Status, t.Deadline).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE id = $1`, id))
}

// GetByIDForUpdate locks the task row. Call within a transaction.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status     string
	Search     string
	WorkerView bool // only active tasks with open slots and a future deadline
}

func (r *TaskRepo) List(ctx context.Context, f ListFilter) ([]*models.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE 1=1`
	var args []any
	if f.WorkerView {
		q += ` AND status = 'active' AND available_units > 0 AND deadline > now()`
	} else if f.Status != "" {
		args = append(args, f.Status)
		q += ` AND status = $1`
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		q += ` AND (title ILIKE $` + n + ` OR description ILIKE $` + n + `)`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func (r *TaskRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE buyer_id = $1 ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

// ConsumeSlot atomically claims one slot: decrements available_units and
// increments submission_count, conditioned on the task still being claimable.
// Returns false when no row matched (no slot, inactive, or past deadline).
func (r *TaskRepo) ConsumeSlot(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks
		SET available_units = available_units - 1,
		    submission_count = submission_count + 1,
		    updated_at = now()
		WHERE id = $1 AND status = 'active' AND available_units > 0 AND deadline > now()
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyApproval increments approved_count and flips the task to completed
// once every required unit is approved.
func (r *TaskRepo) ApplyApproval(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks
		SET approved_count = approved_count + 1,
		    status = CASE WHEN approved_count + 1 >= required_units THEN 'completed' ELSE status END,
		    updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// ApplyRejection increments rejected_count and returns the slot to the pool.
func (r *TaskRepo) ApplyRejection(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks
		SET rejected_count = rejected_count + 1,
		    available_units = available_units + 1,
		    updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// UpdateTx persists mutable task fields inside the given transaction.
func (r *TaskRepo) UpdateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, submission_info = $4, reward_per_unit = $5,
		    required_units = $6, available_units = $7, status = $8, deadline = $9,
		    updated_at = now()
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.SubmissionInfo, t.RewardPerUnit,
		t.RequiredUnits, t.AvailableUnits, t.Status, t.Deadline)
	return err
}

// DeleteTx removes the task (submissions cascade).
func (r *TaskRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// CountByBuyer returns total tasks and total active tasks for a buyer.
func (r *TaskRepo) CountByBuyer(ctx context.Context, buyerID uuid.UUID) (total, active int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = 'active')
		FROM tasks WHERE buyer_id = $1
	`, buyerID).Scan(&total, &active)
	return total, active, err
}

