// Package memory is an in-process [goAccount.UserStore] for tests and local
// development. Every method runs under one mutex, so each call is an atomic
// single-record operation.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/google/uuid"
)

// Store keeps users in maps indexed by id, email, refresh hash and reset hash.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	byID      map[string]*goAccount.User
	byEmail   map[string]string
	byRefresh map[string]string
	byReset   map[string]string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		byID:      make(map[string]*goAccount.User),
		byEmail:   make(map[string]string),
		byRefresh: make(map[string]string),
		byReset:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateUser(_ context.Context, user *goAccount.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return fmt.Errorf("email %q: %w", user.Email, goAccount.ErrAlreadyExists)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := s.byID[user.ID]; ok {
		return fmt.Errorf("id %q: %w", user.ID, goAccount.ErrAlreadyExists)
	}

	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := user.Clone()
	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	if !stored.Refresh.IsZero() {
		s.byRefresh[stored.Refresh.Hash] = stored.ID
	}
	if !stored.Reset.IsZero() {
		s.byReset[stored.Reset.Hash] = stored.ID
	}
	return nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*goAccount.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, goAccount.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*goAccount.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(s.byEmail, email)
}

func (s *Store) GetUserByRefreshHash(_ context.Context, hash string) (*goAccount.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(s.byRefresh, hash)
}

func (s *Store) SetRefreshToken(_ context.Context, userID string, state goAccount.TokenState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return goAccount.ErrNotFound
	}
	if !u.Refresh.IsZero() {
		delete(s.byRefresh, u.Refresh.Hash)
	}
	u.Refresh = state
	if !state.IsZero() {
		s.byRefresh[state.Hash] = userID
	}
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) SetResetToken(_ context.Context, userID string, state goAccount.TokenState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return goAccount.ErrNotFound
	}
	if !u.Reset.IsZero() {
		delete(s.byReset, u.Reset.Hash)
	}
	u.Reset = state
	if !state.IsZero() {
		s.byReset[state.Hash] = userID
	}
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) TakeResetToken(_ context.Context, hash string) (*goAccount.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byReset[hash]
	if !ok {
		return nil, goAccount.ErrNotFound
	}
	u := s.byID[id]
	before := u.Clone()

	delete(s.byReset, hash)
	u.Reset = goAccount.TokenState{}
	u.UpdatedAt = s.now().UTC()
	return before, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return goAccount.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now().UTC()
	return nil
}

// SetBlocked flips the blocked flag. It is not part of goAccount.UserStore;
// administrative tooling and tests use it directly.
func (s *Store) SetBlocked(_ context.Context, userID string, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return goAccount.ErrNotFound
	}
	u.IsBlocked = blocked
	u.UpdatedAt = s.now().UTC()
	return nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Store) lookup(index map[string]string, key string) (*goAccount.User, error) {
	id, ok := index[key]
	if !ok {
		return nil, goAccount.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

var _ goAccount.UserStore = (*Store)(nil)
