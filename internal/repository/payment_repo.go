package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskmint/backend/internal/models"
)

const paymentSessionCols = `id, session_id, buyer_id, coins, price_cents, status,
	created_at, updated_at`

type PaymentSessionRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentSessionRepo(pool *pgxpool.Pool) *PaymentSessionRepo {
	return &PaymentSessionRepo{pool: pool}
}

func scanPaymentSession(row pgx.Row) (*models.PaymentSession, error) {
	var p models.PaymentSession
	err := row.Scan(&p.ID, &p.SessionID, &p.BuyerID, &p.Coins, &p.PriceCents, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentSessionRepo) Create(ctx context.Context, p *models.PaymentSession) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_sessions (id, session_id, buyer_id, coins, price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, p.ID, p.SessionID, p.BuyerID, p.Coins, p.PriceCents, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PaymentSessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	return scanPaymentSession(r.pool.QueryRow(ctx,
		`SELECT `+paymentSessionCols+` FROM payment_sessions WHERE session_id = $1`, sessionID))
}

// MarkDelivered flips a pending session to delivered. Returns false when the
// session is unknown or already delivered.
func (r *PaymentSessionRepo) MarkDelivered(ctx context.Context, tx pgx.Tx, sessionID string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE payment_sessions
		SET status = 'delivered', updated_at = now()
		WHERE session_id = $1 AND status = 'pending'
	`, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
