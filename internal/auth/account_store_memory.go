package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/cliptube/backend/internal/models"
)

// NewInMemoryAccountStore returns an AccountStore backed by in-memory maps.
// It honours the same uniqueness and compare-and-swap semantics as the
// Postgres implementation, so tests exercise the real contracts.
func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[string]models.Account)}
}

// InMemoryAccountStore implements AccountStore for tests and local development.
type InMemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

// Create persists a new account, rejecting duplicate usernames or emails.
func (s *InMemoryAccountStore) Create(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return ErrDuplicateAccount
		}
	}
	s.accounts[account.ID] = account
	return nil
}

// FindByID retrieves an account by id.
func (s *InMemoryAccountStore) FindByID(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return account, nil
}

// FindByIdentifier matches the lowercased username or email.
func (s *InMemoryAccountStore) FindByIdentifier(_ context.Context, identifier string) (models.Account, error) {
	identifier = strings.ToLower(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.Username == identifier || account.Email == identifier {
			return account, nil
		}
	}
	return models.Account{}, ErrNotFound
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
func (s *InMemoryAccountStore) SetRefreshToken(_ context.Context, accountID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	account.RefreshToken = token
	s.accounts[accountID] = account
	return nil
}

// RotateRefreshToken swaps the stored token only when it still equals old.
func (s *InMemoryAccountStore) RotateRefreshToken(_ context.Context, accountID, old, new string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	if account.RefreshToken != old {
		return ErrStaleToken
	}
	account.RefreshToken = new
	s.accounts[accountID] = account
	return nil
}

// UpdatePasswordHash stores a new password hash for the account.
func (s *InMemoryAccountStore) UpdatePasswordHash(_ context.Context, accountID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	account.PasswordHash = hash
	s.accounts[accountID] = account
	return nil
}

// StoredRefreshToken reports the current refresh token. Useful for tests.
func (s *InMemoryAccountStore) StoredRefreshToken(accountID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[accountID].RefreshToken
}

// Len reports how many accounts are stored. Useful for tests.
func (s *InMemoryAccountStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

var _ AccountStore = (*InMemoryAccountStore)(nil)
