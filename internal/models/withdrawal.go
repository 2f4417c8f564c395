package models

import (
	"time"

	"github.com/google/uuid"
)

// Withdrawal status enum.
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

// MinWithdrawalCoins is the smallest coin amount a worker may cash out.
const MinWithdrawalCoins = 200

// CoinsPerDollar is the fixed conversion rate applied at withdrawal time.
const CoinsPerDollar = 20

type WithdrawalRequest struct {
	ID            uuid.UUID `json:"id"`
	WorkerID      uuid.UUID `json:"worker_id"`
	CoinAmount    int       `json:"coin_amount"`
	DollarAmount  float64   `json:"dollar_amount"`
	PaymentSystem string    `json:"payment_system"`
	AccountNumber string    `json:"account_number"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DollarValue converts a coin amount to external currency at the fixed rate.
func DollarValue(coins int) float64 {
	return float64(coins) / CoinsPerDollar
}
