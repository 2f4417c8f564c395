// Package ledger implements the append-only coin ledger primitive. Every
// balance change in the system goes through Record, which mutates the account
// balance and appends the audit entry in one transaction.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskmint/backend/internal/models"
)

// ErrAccountNotFound is returned when the ledger is asked to record against
// an unknown account.
var ErrAccountNotFound = errors.New("account not found")

// ErrInsufficientFunds is the storage-level backstop: the balance update is
// conditioned on the result staying non-negative, so a debit that lost a race
// with another debit fails here even though the caller's pre-check passed.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Entry describes one balance movement. Amount is signed: credits positive,
// debits negative.
type Entry struct {
	AccountID    uuid.UUID
	Kind         string
	Amount       int
	Description  string
	TaskID       *uuid.UUID
	SubmissionID *uuid.UUID
	SessionID    *string
}

// TransactionWriter appends ledger rows. Satisfied by repository.TransactionRepo.
type TransactionWriter interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

type Service struct {
	transactions TransactionWriter
}

func NewService(transactions TransactionWriter) *Service {
	return &Service{transactions: transactions}
}

// Record applies the balance change and appends the matching Transaction
// inside the caller's database transaction. The account update is a single
// conditional statement, so two concurrent debits can never both pass the
// same balance.
func (s *Service) Record(ctx context.Context, tx pgx.Tx, e Entry) (*models.Transaction, error) {
	var newBalance int
	err := tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`, e.Amount, e.AccountID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, e.AccountID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrAccountNotFound
		}
		return nil, ErrInsufficientFunds
	}
	if err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		ID:            uuid.New(),
		AccountID:     e.AccountID,
		Kind:          e.Kind,
		Amount:        e.Amount,
		Description:   e.Description,
		TaskID:        e.TaskID,
		SubmissionID:  e.SubmissionID,
		SessionID:     e.SessionID,
		BalanceBefore: newBalance - e.Amount,
		BalanceAfter:  newBalance,
	}
	if err := s.transactions.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
