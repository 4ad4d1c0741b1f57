package credits

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
)

// PostgresStore is the production ledger. Deduction is a single conditional
// UPDATE (balance >= amount) inside a transaction that also writes a journal
// row, so overdrafts are impossible across any number of processes.
//
// Schema (paymaster.credit_accounts, paymaster.credit_transactions):
//
//	CREATE TABLE paymaster.credit_accounts (
//	    address      TEXT PRIMARY KEY,
//	    balance      BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
//	    total_spent  BIGINT NOT NULL DEFAULT 0,
//	    last_top_up  TIMESTAMPTZ,
//	    is_active    BOOLEAN NOT NULL DEFAULT true,
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE TABLE paymaster.credit_transactions (
//	    id             TEXT PRIMARY KEY,
//	    address        TEXT NOT NULL,
//	    amount         BIGINT NOT NULL,
//	    balance_after  BIGINT NOT NULL,
//	    kind           TEXT NOT NULL,
//	    reference      TEXT,
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db     *sql.DB
	logger logging.Logger
}

// NewPostgresStore creates a PostgresStore over an open connection pool.
func NewPostgresStore(db *sql.DB, logger logging.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func (s *PostgresStore) GetAccount(ctx context.Context, address string) (*Account, error) {
	addr := normalizeAddress(address)

	var acct Account
	var lastTopUp sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT address, balance, total_spent, last_top_up, is_active, created_at
		FROM paymaster.credit_accounts
		WHERE address = $1
	`, addr).Scan(&acct.Address, &acct.Balance, &acct.TotalSpent, &lastTopUp, &acct.IsActive, &acct.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", addr, err)
	}
	if lastTopUp.Valid {
		t := lastTopUp.Time
		acct.LastTopUp = &t
	}
	return &acct, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, address string) (*Account, error) {
	addr := normalizeAddress(address)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paymaster.credit_accounts (address, balance, total_spent, is_active)
		VALUES ($1, 0, 0, true)
		ON CONFLICT (address) DO NOTHING
	`, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", addr, err)
	}
	return s.GetAccount(ctx, addr)
}

func (s *PostgresStore) DeductCredits(ctx context.Context, address string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	addr := normalizeAddress(address)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin deduction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	// Conditional UPDATE: the WHERE clause is the overdraft guard. Zero rows
	// affected means insufficient funds, not an error.
	var balanceAfter int64
	err = tx.QueryRowContext(ctx, `
		UPDATE paymaster.credit_accounts
		SET balance = balance - $2,
		    total_spent = total_spent + $2,
		    updated_at = NOW()
		WHERE address = $1 AND is_active = true AND balance >= $2
		RETURNING balance
	`, addr, amount).Scan(&balanceAfter)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to deduct credits for %s: %w", addr, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO paymaster.credit_transactions (id, address, amount, balance_after, kind, created_at)
		VALUES ($1, $2, $3, $4, 'deduct', NOW())
	`, uuid.New().String(), addr, -amount, balanceAfter)
	if err != nil {
		return false, fmt.Errorf("failed to journal deduction for %s: %w", addr, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit deduction: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logging.Fields{
			"address":       addr,
			"amount":        amount,
			"balance_after": balanceAfter,
		}).Debug("Credits deducted")
	}
	return true, nil
}

func (s *PostgresStore) AddCredits(ctx context.Context, address string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	addr := normalizeAddress(address)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin deposit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort

	var balanceAfter int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO paymaster.credit_accounts (address, balance, total_spent, last_top_up, is_active)
		VALUES ($1, $2, 0, NOW(), true)
		ON CONFLICT (address) DO UPDATE
		SET balance = paymaster.credit_accounts.balance + EXCLUDED.balance,
		    last_top_up = NOW(),
		    updated_at = NOW()
		RETURNING balance
	`, addr, amount).Scan(&balanceAfter)
	if err != nil {
		return fmt.Errorf("failed to add credits for %s: %w", addr, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO paymaster.credit_transactions (id, address, amount, balance_after, kind, created_at)
		VALUES ($1, $2, $3, $4, 'topup', NOW())
	`, uuid.New().String(), addr, amount, balanceAfter)
	if err != nil {
		return fmt.Errorf("failed to journal deposit for %s: %w", addr, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deposit: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logging.Fields{
			"address":       addr,
			"amount":        amount,
			"balance_after": balanceAfter,
		}).Info("Credits deposited")
	}
	return nil
}
