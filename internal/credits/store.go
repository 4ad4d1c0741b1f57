// Package credits holds the prepaid balance ledger. Balances only move
// through AddCredits and DeductCredits; deduction is conditional and can
// never drive a balance negative, regardless of concurrent callers.
package credits

import (
	"context"
	"errors"
	"time"
)

// Account is a per-address prepaid ledger entry. Amounts are smallest
// currency units (6 decimals).
type Account struct {
	Address    string     `json:"address"`
	Balance    int64      `json:"balance"`
	TotalSpent int64      `json:"total_spent"`
	LastTopUp  *time.Time `json:"last_top_up,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ErrInvalidAmount rejects non-positive deposit or deduction amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// Store is the credit ledger contract. Implementations are chosen at
// bootstrap (Postgres in production, in-memory for development) and injected
// into the router; nothing reaches for a global.
type Store interface {
	// GetAccount returns the account, or nil if the address has never been
	// seen.
	GetAccount(ctx context.Context, address string) (*Account, error)

	// CreateAccount creates (or returns the existing) account for the
	// address.
	CreateAccount(ctx context.Context, address string) (*Account, error)

	// DeductCredits atomically subtracts amount if the balance covers it.
	// Returns false with a nil error when funds are insufficient. Concurrent
	// deductions against one account serialize; the balance never goes
	// negative.
	DeductCredits(ctx context.Context, address string, amount int64) (bool, error)

	// AddCredits deposits amount, creating the account if needed.
	AddCredits(ctx context.Context, address string, amount int64) error
}
