package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmint/backend/internal/models"
)

// ErrDuplicateSession surfaces the unique session_id violation. It is the
// storage-level guarantee that one checkout session funds at most one credit.
var ErrDuplicateSession = errors.New("session already funded a transaction")

const transactionCols = `id, account_id, kind, amount, description, task_id,
	submission_id, session_id, balance_before, balance_after, created_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.Description, &t.TaskID,
		&t.SubmissionID, &t.SessionID, &t.BalanceBefore, &t.BalanceAfter, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTx appends a ledger entry inside the given transaction. Entries are
// never updated or deleted afterwards.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, kind, amount, description,
			task_id, submission_id, session_id, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, t.ID, t.AccountID, t.Kind, t.Amount, t.Description,
		t.TaskID, t.SubmissionID, t.SessionID, t.BalanceBefore, t.BalanceAfter).
		Scan(&t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSession
	}
	return err
}

func (r *TransactionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE session_id = $1`, sessionID))
}

func (r *TransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, kind string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT ` + transactionCols + ` FROM transactions WHERE account_id = $1`
	args := []any{accountID}
	if kind != "" {
		args = append(args, kind)
		q += ` AND kind = $2`
	}
	q += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
