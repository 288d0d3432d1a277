package account

import (
	"context"
	"fmt"
	"sync"

	domain "conference/internal/domain/account"
)

// Store persists admin account state.
type Store interface {
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, a domain.Account) error
}

// MemoryStore holds the configured administrators. Lockout counters live for the process lifetime.
type MemoryStore struct {
	mu       sync.Mutex
	accounts []domain.Account
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore seeds the store with the given accounts.
// PRE: every account passes Validate
func NewMemoryStore(accounts ...domain.Account) *MemoryStore {
	return &MemoryStore{accounts: append([]domain.Account(nil), accounts...)}
}

// GetByEmail returns the account whose email matches case-insensitively.
// POST: Returns the account or an error wrapping domain.ErrNotFound
func (s *MemoryStore) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if domain.SameEmail(a.Email, email) {
			return a, nil
		}
	}
	return domain.Account{}, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
}

// Save replaces the stored account with the same email.
// POST: Account updated, or domain.ErrNotFound when no such account is seeded
func (s *MemoryStore) Save(_ context.Context, a domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if domain.SameEmail(s.accounts[i].Email, a.Email) {
			s.accounts[i] = a
			return nil
		}
	}
	return fmt.Errorf("account %s: %w", a.Email, domain.ErrNotFound)
}
