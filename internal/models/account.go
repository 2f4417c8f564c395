package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleWorker = "worker"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// Starting coin balances granted at registration.
const (
	WorkerSeedCoins = 10
	BuyerSeedCoins  = 50
)

type Account struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	Balance         int       `json:"balance"`
	IsActive        bool      `json:"is_active"`
	CompletedTasks  int       `json:"completed_tasks"`
	TotalEarnings   int       `json:"total_earnings"`
	CreatedTasks    int       `json:"created_tasks"`
	TotalSpent      int       `json:"total_spent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SeedBalance returns the coin balance a new account starts with.
func SeedBalance(role string) int {
	switch role {
	case RoleBuyer:
		return BuyerSeedCoins
	case RoleWorker:
		return WorkerSeedCoins
	default:
		return 0
	}
}
