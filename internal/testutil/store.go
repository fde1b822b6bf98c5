package testutil

import (
	"context"
	"sync"

	"github.com/waflow/accountd/internal/model"
	appErr "github.com/waflow/accountd/internal/pkg/errors"
)

// MemStore is an in-memory AccountStore used by service and handler tests.
// It enforces email uniqueness the way the real table's unique index does.
type MemStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
}

func NewMemStore() *MemStore {
	return &MemStore{accounts: make(map[string]*model.Account)}
}

func (s *MemStore) Create(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return appErr.ErrConflict
		}
	}
	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

func (s *MemStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *MemStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (s *MemStore) GetByEmailToken(ctx context.Context, code string, now int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.EmailToken.Valid && account.EmailToken.String == code &&
			account.EmailTokenExpires.Valid && account.EmailTokenExpires.Int64 > now {
			clone := *account
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *MemStore) GetByResetToken(ctx context.Context, token string, now int64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.ResetToken.Valid && account.ResetToken.String == token &&
			account.ResetTokenExpires.Valid && account.ResetTokenExpires.Int64 > now {
			clone := *account
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *MemStore) SetEmailToken(ctx context.Context, id, code string, expires, mtime int64) error {
	return s.mutate(id, func(account *model.Account) {
		account.EmailToken.String = code
		account.EmailToken.Valid = true
		account.EmailTokenExpires.Int64 = expires
		account.EmailTokenExpires.Valid = true
		account.Mtime = mtime
	})
}

func (s *MemStore) SetResetToken(ctx context.Context, id, token string, expires, mtime int64) error {
	return s.mutate(id, func(account *model.Account) {
		account.ResetToken.String = token
		account.ResetToken.Valid = true
		account.ResetTokenExpires.Int64 = expires
		account.ResetTokenExpires.Valid = true
		account.Mtime = mtime
	})
}

func (s *MemStore) MarkEmailVerified(ctx context.Context, id string, mtime int64) error {
	return s.mutate(id, func(account *model.Account) {
		account.EmailVerified = true
		account.EmailToken.String = ""
		account.EmailToken.Valid = false
		account.EmailTokenExpires.Int64 = 0
		account.EmailTokenExpires.Valid = false
		account.Mtime = mtime
	})
}

func (s *MemStore) UpdatePasswordClearReset(ctx context.Context, id, passwordHash string, mtime int64) error {
	return s.mutate(id, func(account *model.Account) {
		account.PasswordHash = passwordHash
		account.ResetToken.String = ""
		account.ResetToken.Valid = false
		account.ResetTokenExpires.Int64 = 0
		account.ResetTokenExpires.Valid = false
		account.Mtime = mtime
	})
}

// Put inserts or replaces a row directly, bypassing uniqueness checks.
// Tests use it to stage accounts with expired tokens.
func (s *MemStore) Put(account *model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *account
	s.accounts[account.ID] = &clone
}

func (s *MemStore) mutate(id string, fn func(*model.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return appErr.ErrNotFound
	}
	fn(account)
	return nil
}
