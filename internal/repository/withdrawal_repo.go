package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmint/backend/internal/models"
)

const withdrawalCols = `id, worker_id, coin_amount, dollar_amount, payment_system,
	account_number, status, created_at, updated_at`

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(&w.ID, &w.WorkerID, &w.CoinAmount, &w.DollarAmount, &w.PaymentSystem,
		&w.AccountNumber, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepo) Create(ctx context.Context, w *models.WithdrawalRequest) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO withdrawal_requests (id, worker_id, coin_amount, dollar_amount,
			payment_system, account_number, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, w.ID, w.WorkerID, w.CoinAmount, w.DollarAmount,
		w.PaymentSystem, w.AccountNumber, w.Status).
		Scan(&w.CreatedAt, &w.UpdatedAt)
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return scanWithdrawal(r.pool.QueryRow(ctx,
		`SELECT `+withdrawalCols+` FROM withdrawal_requests WHERE id = $1`, id))
}

// GetByIDForUpdate locks the request row. Call within a transaction.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return scanWithdrawal(tx.QueryRow(ctx,
		`SELECT `+withdrawalCols+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id))
}

// MarkProcessed applies the pending -> approved/rejected transition,
// conditioned on the request still being pending. Returns false when another
// admin got there first.
func (r *WithdrawalRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE withdrawal_requests
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *WithdrawalRepo) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+withdrawalCols+` FROM withdrawal_requests WHERE worker_id = $1 ORDER BY created_at DESC`, workerID)
	if err != nil {
		return nil, err
	}
	return scanWithdrawals(rows)
}

func (r *WithdrawalRepo) List(ctx context.Context, status string) ([]*models.WithdrawalRequest, error) {
	q := `SELECT ` + withdrawalCols + ` FROM withdrawal_requests`
	var args []any
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanWithdrawals(rows)
}

// TotalApprovedDollars sums paid-out external currency across all approved
// requests.
func (r *WithdrawalRepo) TotalApprovedDollars(ctx context.Context) (float64, error) {
	var n float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(dollar_amount), 0) FROM withdrawal_requests WHERE status = 'approved'
	`).Scan(&n)
	return n, err
}

func scanWithdrawals(rows pgx.Rows) ([]*models.WithdrawalRequest, error) {
	defer rows.Close()
	var list []*models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
