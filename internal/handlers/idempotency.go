package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
)

// Idempotency headers. A client retrying POST /process with the same key
// gets the stored response back with the replay marker set.
const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "X-Idempotent-Replay"
)

// idempotencyWindow is how long a stored response stays replayable.
const idempotencyWindow = 24 * time.Hour

// IdempotencyRecord is one stored successful response.
type IdempotencyRecord struct {
	Key        string
	Address    string
	Service    string
	StatusCode int
	Body       []byte
	CreatedAt  time.Time
}

// IdempotencyStore persists successful payment responses for replay.
// Lookup returns nil for unknown or expired keys.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (*IdempotencyRecord, error)
	Store(ctx context.Context, record *IdempotencyRecord) error
	Purge(ctx context.Context) (int64, error)
}

// PostgresIdempotencyStore is the production store.
//
// Schema (paymaster.idempotency_keys):
//
//	key          TEXT PRIMARY KEY
//	address      TEXT NOT NULL
//	service      TEXT NOT NULL
//	status_code  INT NOT NULL
//	response     BYTEA NOT NULL
//	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
type PostgresIdempotencyStore struct {
	db     *sql.DB
	logger logging.Logger
}

// NewPostgresIdempotencyStore creates the Postgres-backed store.
func NewPostgresIdempotencyStore(database *sql.DB, log logging.Logger) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: database, logger: log}
}

func (s *PostgresIdempotencyStore) Lookup(ctx context.Context, key string) (*IdempotencyRecord, error) {
	record := &IdempotencyRecord{Key: key}
	err := s.db.QueryRowContext(ctx, `
		SELECT address, service, status_code, response, created_at
		FROM paymaster.idempotency_keys
		WHERE key = $1 AND created_at > $2
	`, key, time.Now().UTC().Add(-idempotencyWindow)).Scan(
		&record.Address, &record.Service, &record.StatusCode, &record.Body, &record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return record, nil
}

func (s *PostgresIdempotencyStore) Store(ctx context.Context, record *IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paymaster.idempotency_keys (key, address, service, status_code, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO NOTHING
	`, record.Key, record.Address, record.Service, record.StatusCode, record.Body, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("idempotency store failed: %w", err)
	}
	return nil
}

func (s *PostgresIdempotencyStore) Purge(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM paymaster.idempotency_keys WHERE created_at <= $1
	`, time.Now().UTC().Add(-idempotencyWindow))
	if err != nil {
		return 0, fmt.Errorf("idempotency purge failed: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// MemoryIdempotencyStore is the single-process fallback used when no
// database is configured. Same contract as the Postgres store.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*IdempotencyRecord
}

// NewMemoryIdempotencyStore creates an empty in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: make(map[string]*IdempotencyRecord)}
}

func (s *MemoryIdempotencyStore) Lookup(_ context.Context, key string) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok || time.Since(record.CreatedAt) > idempotencyWindow {
		return nil, nil
	}
	return record, nil
}

func (s *MemoryIdempotencyStore) Store(_ context.Context, record *IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.Key]; !exists {
		s.records[record.Key] = record
	}
	return nil
}

func (s *MemoryIdempotencyStore) Purge(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for key, record := range s.records {
		if time.Since(record.CreatedAt) > idempotencyWindow {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}
