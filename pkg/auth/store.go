package auth

import (
	"context"
	"sync"
)

// LoginStore persists a login across process restarts. Implementations make
// no ordering promise between concurrent calls; the authenticator serializes
// access one level up.
type LoginStore interface {
	// Retrieve returns the persisted login, or nil when none is stored.
	Retrieve(ctx context.Context) (*Login, error)

	// Store persists the login, replacing any previous one.
	Store(ctx context.Context, login Login) error
}

// MemoryStore is an in-process LoginStore. It is primarily useful for tests
// and for processes that do not want logins to outlive them.
type MemoryStore struct {
	mu    sync.Mutex
	login *Login
}

// NewMemoryStore creates an empty in-process login store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Retrieve returns the stored login, or nil when none is stored.
func (s *MemoryStore) Retrieve(ctx context.Context) (*Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.login == nil {
		return nil, nil
	}
	login := *s.login
	return &login, nil
}

// Store replaces the stored login.
func (s *MemoryStore) Store(ctx context.Context, login Login) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = &login
	return nil
}

// Delete removes the stored login.
func (s *MemoryStore) Delete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = nil
}
