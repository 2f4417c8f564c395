package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskmint/backend/internal/ledger"
	"github.com/taskmint/backend/internal/models"
	"github.com/taskmint/backend/internal/notify"
	"github.com/taskmint/backend/internal/repository"
)

// PaymentService reconciles external checkout sessions into coin credits.
// Settlement is a single idempotent operation shared by the provider webhook
// and the client-poll verification path.
type PaymentService struct {
	pool         TxBeginner
	sessions     PaymentSessionStore
	transactions TransactionReader
	confirmer    PaymentConfirmer
	ledger       Ledger
	notifier     notify.Notifier
}

func NewPaymentService(pool TxBeginner, sessions PaymentSessionStore, transactions TransactionReader, confirmer PaymentConfirmer, l Ledger, n notify.Notifier) *PaymentService {
	return &PaymentService{pool: pool, sessions: sessions, transactions: transactions, confirmer: confirmer, ledger: l, notifier: n}
}

// CreateCheckout records a pending payment session when a checkout begins.
// Nothing is credited here; the session only binds the buyer to the provider
// session id so settlement can resolve it later.
func (s *PaymentService) CreateCheckout(ctx context.Context, buyerID uuid.UUID, sessionID string, coins, priceCents int) (*models.PaymentSession, error) {
	if coins < 1 {
		return nil, ErrInvalidCoinAmount
	}
	p := &models.PaymentSession{
		ID:         uuid.New(),
		SessionID:  sessionID,
		BuyerID:    buyerID,
		Coins:      coins,
		PriceCents: priceCents,
		Status:     models.PaymentSessionPending,
	}
	if err := s.sessions.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Reconcile credits the buyer for a paid session exactly once. The unique
// session_id index on the ledger is the arbiter: whichever trigger inserts
// first wins, every later attempt gets the existing entry back with
// alreadyDelivered set. An already-delivered session is a no-op success, not
// an error.
func (s *PaymentService) Reconcile(ctx context.Context, sessionID string, buyerID uuid.UUID, coins int) (txn *models.Transaction, alreadyDelivered bool, err error) {
	if coins < 1 {
		return nil, false, ErrInvalidCoinAmount
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	txn, err = s.ledger.Record(ctx, tx, ledger.Entry{
		AccountID:   buyerID,
		Kind:        models.TxKindPurchase,
		Amount:      coins,
		Description: fmt.Sprintf("Purchased %d coins", coins),
		SessionID:   &sessionID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			existing, lookupErr := s.transactions.GetBySessionID(ctx, sessionID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, true, nil
		}
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, false, ErrAccountNotFound
		}
		return nil, false, err
	}

	// Mark the session delivered when we track it. Webhook-only sessions
	// (no local checkout record) are fine; the ledger entry is the source
	// of truth for idempotency.
	if _, err := s.sessions.MarkDelivered(ctx, tx, sessionID); err != nil {
		return nil, false, err
	}

	if err := s.notifier.NotifyTx(ctx, tx, notify.UserNotificationArgs{
		AccountID:   buyerID,
		Title:       "Coins delivered",
		Message:     fmt.Sprintf("%d coins were added to your balance.", coins),
		Type:        models.NotificationPayment,
		ActionRoute: "/buyer",
	}); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return txn, false, nil
}

// Verify is the client-poll path. It resolves the stored session, asks the
// provider whether the session was actually paid, and only then settles. The
// credit amount comes from the provider's confirmation, never from what the
// client recorded at checkout.
func (s *PaymentService) Verify(ctx context.Context, sessionID string) (*models.Transaction, bool, error) {
	session, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrSessionNotFound
		}
		return nil, false, err
	}
	if session.Status == models.PaymentSessionDelivered {
		existing, err := s.transactions.GetBySessionID(ctx, sessionID)
		if err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}

	conf, err := s.confirmer.Confirm(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if !conf.Paid {
		return nil, false, ErrSessionNotPaid
	}
	return s.Reconcile(ctx, sessionID, session.BuyerID, conf.Coins)
}
