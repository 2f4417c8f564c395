package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment session fulfillment status.
const (
	PaymentSessionPending   = "pending"
	PaymentSessionDelivered = "delivered"
)

// PaymentSession tracks one external checkout attempt. A session funds at
// most one Transaction; settlement is idempotent on SessionID.
type PaymentSession struct {
	ID         uuid.UUID `json:"id"`
	SessionID  string    `json:"session_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	Coins      int       `json:"coins"`
	PriceCents int       `json:"price_cents"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
