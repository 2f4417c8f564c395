package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmint/backend/internal/models"
)

// ErrAccountInUse surfaces a foreign-key violation on delete: the account
// still owns tasks, submissions or ledger entries.
var ErrAccountInUse = errors.New("account still referenced by other records")

const accountCols = `id, name, email, password_hash, role, balance, is_active,
	completed_tasks, total_earnings, created_tasks, total_spent, created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.Balance, &a.IsActive,
		&a.CompletedTasks, &a.TotalEarnings, &a.CreatedTasks, &a.TotalSpent, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, role, balance, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, a.ID, a.Name, strings.ToLower(a.Email), a.PasswordHash, a.Role, a.Balance, a.IsActive).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE lower(email) = lower($1)`, email))
}

func (r *AccountRepo) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountCols+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetByIDForUpdate locks the account row. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

// IncrementBuyerStats adjusts created_tasks and total_spent. total_spent is
// floored at zero so refund deltas can never drive it negative.
func (r *AccountRepo) IncrementBuyerStats(ctx context.Context, tx pgx.Tx, id uuid.UUID, tasksDelta, spentDelta int) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts
		SET created_tasks = created_tasks + $2,
		    total_spent = GREATEST(total_spent + $3, 0),
		    updated_at = now()
		WHERE id = $1
	`, id, tasksDelta, spentDelta)
	return err
}

// IncrementWorkerStats adjusts completed_tasks and total_earnings.
func (r *AccountRepo) IncrementWorkerStats(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedDelta, earningsDelta int) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts
		SET completed_tasks = completed_tasks + $2,
		    total_earnings = total_earnings + $3,
		    updated_at = now()
		WHERE id = $1
	`, id, completedDelta, earningsDelta)
	return err
}

func (r *AccountRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AccountRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrAccountInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountByRole returns how many accounts hold the given role.
func (r *AccountRepo) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM accounts WHERE role = $1`, role).Scan(&n)
	return n, err
}

// TotalCirculatingCoins sums every account balance.
func (r *AccountRepo) TotalCirculatingCoins(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&n)
	return n, err
}
