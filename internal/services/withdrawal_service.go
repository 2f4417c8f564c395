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
)

// WithdrawalService owns the pending -> approved/rejected payout flow. The
// worker's balance is only debited at approval, and sufficiency is re-checked
// there because the balance may have moved since the request.
type WithdrawalService struct {
	pool        TxBeginner
	withdrawals WithdrawalStore
	accounts    AccountStore
	ledger      Ledger
	notifier    notify.Notifier
}

func NewWithdrawalService(pool TxBeginner, withdrawals WithdrawalStore, accounts AccountStore, l Ledger, n notify.Notifier) *WithdrawalService {
	return &WithdrawalService{pool: pool, withdrawals: withdrawals, accounts: accounts, ledger: l, notifier: n}
}

// Request records a pending withdrawal. No balance change happens here; the
// balance check is advisory and repeated at approval time.
func (s *WithdrawalService) Request(ctx context.Context, workerID uuid.UUID, coins int, paymentSystem, accountNumber string) (*models.WithdrawalRequest, error) {
	if coins < models.MinWithdrawalCoins {
		return nil, ErrBelowMinimumWithdrawal
	}
	worker, err := s.accounts.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if worker.Balance < coins {
		return nil, ErrInsufficientFunds
	}

	w := &models.WithdrawalRequest{
		ID:            uuid.New(),
		WorkerID:      workerID,
		CoinAmount:    coins,
		DollarAmount:  models.DollarValue(coins),
		PaymentSystem: paymentSystem,
		AccountNumber: accountNumber,
		Status:        models.WithdrawalStatusPending,
	}
	if err := s.withdrawals.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Approve debits the worker and marks the request approved. If the worker's
// balance dropped below the requested amount in the meantime, the request is
// left pending for retry or explicit rejection.
func (s *WithdrawalService) Approve(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := s.withdrawals.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	if w.Status != models.WithdrawalStatusPending {
		return nil, ErrAlreadyProcessed
	}

	worker, err := s.accounts.GetByIDForUpdate(ctx, tx, w.WorkerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if worker.Balance < w.CoinAmount {
		return nil, ErrInsufficientFundsAtApproval
	}

	transitioned, err := s.withdrawals.MarkProcessed(ctx, tx, requestID, models.WithdrawalStatusApproved)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return nil, ErrAlreadyProcessed
	}
	if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
		AccountID:   w.WorkerID,
		Kind:        models.TxKindWithdrawal,
		Amount:      -w.CoinAmount,
		Description: fmt.Sprintf("Withdrawal of %d coins via %s", w.CoinAmount, w.PaymentSystem),
	}); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyTx(ctx, tx, notify.UserNotificationArgs{
		AccountID:   w.WorkerID,
		Title:       "Withdrawal approved",
		Message:     fmt.Sprintf("Your withdrawal request for $%.2f has been approved.", w.DollarAmount),
		Type:        models.NotificationPayment,
		ActionRoute: "/worker",
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	w.Status = models.WithdrawalStatusApproved
	return w, nil
}

// Reject marks a pending request rejected. No balance change.
func (s *WithdrawalService) Reject(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := s.withdrawals.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	if w.Status != models.WithdrawalStatusPending {
		return nil, ErrAlreadyProcessed
	}
	transitioned, err := s.withdrawals.MarkProcessed(ctx, tx, requestID, models.WithdrawalStatusRejected)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return nil, ErrAlreadyProcessed
	}

	if err := s.notifier.NotifyTx(ctx, tx, notify.UserNotificationArgs{
		AccountID:   w.WorkerID,
		Title:       "Withdrawal rejected",
		Message:     "Your withdrawal request was rejected by the admin.",
		Type:        models.NotificationPayment,
		ActionRoute: "/worker",
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	w.Status = models.WithdrawalStatusRejected
	return w, nil
}
