package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kind enum. Amount sign matches direction: purchase, earning and
// refund are credits (positive), payment and withdrawal are debits (negative).
const (
	TxKindPurchase   = "purchase"
	TxKindEarning    = "earning"
	TxKindWithdrawal = "withdrawal"
	TxKindPayment    = "payment"
	TxKindRefund     = "refund"
)

// Transaction is an immutable ledger entry recording one balance change.
// balance_after = balance_before + amount always holds.
type Transaction struct {
	ID            uuid.UUID  `json:"id"`
	AccountID     uuid.UUID  `json:"account_id"`
	Kind          string     `json:"kind"`
	Amount        int        `json:"amount"`
	Description   string     `json:"description"`
	TaskID        *uuid.UUID `json:"task_id,omitempty"`
	SubmissionID  *uuid.UUID `json:"submission_id,omitempty"`
	SessionID     *string    `json:"session_id,omitempty"`
	BalanceBefore int        `json:"balance_before"`
	BalanceAfter  int        `json:"balance_after"`
	CreatedAt     time.Time  `json:"created_at"`
}
