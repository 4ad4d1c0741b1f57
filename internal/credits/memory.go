package credits

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the development ledger: same contract as PostgresStore,
// mutex-serialized so the no-overdraft guarantee holds under concurrent
// callers within one process. Balances are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	clock    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		clock:    time.Now,
	}
}

func (s *MemoryStore) GetAccount(_ context.Context, address string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[normalizeAddress(address)]
	if !ok {
		return nil, nil
	}
	copied := *acct
	return &copied, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, address string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *s.getOrCreateLocked(address)
	return &copied, nil
}

func (s *MemoryStore) DeductCredits(_ context.Context, address string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[normalizeAddress(address)]
	if !ok || !acct.IsActive || acct.Balance < amount {
		return false, nil
	}
	acct.Balance -= amount
	acct.TotalSpent += amount
	return true, nil
}

func (s *MemoryStore) AddCredits(_ context.Context, address string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.getOrCreateLocked(address)
	acct.Balance += amount
	now := s.clock()
	acct.LastTopUp = &now
	return nil
}

func (s *MemoryStore) getOrCreateLocked(address string) *Account {
	addr := normalizeAddress(address)
	acct, ok := s.accounts[addr]
	if !ok {
		acct = &Account{
			Address:   addr,
			IsActive:  true,
			CreatedAt: s.clock(),
		}
		s.accounts[addr] = acct
	}
	return acct
}
