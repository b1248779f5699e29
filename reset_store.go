package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal"
)

// ResetTokenStore persists single-use password reset tokens. Only the sha256
// of a token is stored; the raw value is returned once, by Issue.
type ResetTokenStore struct {
	users UserStore
	ttl   time.Duration
	now   func() time.Time
}

// NewResetTokenStore returns a store that writes through users.
func NewResetTokenStore(users UserStore, ttl time.Duration, now func() time.Time) *ResetTokenStore {
	if now == nil {
		now = time.Now
	}
	return &ResetTokenStore{users: users, ttl: ttl, now: now}
}

// Issue generates a reset token for userID, replacing any earlier one, and
// returns the raw value for delivery.
func (s *ResetTokenStore) Issue(ctx context.Context, userID string) (string, error) {
	raw, hash, err := internal.NewResetToken()
	if err != nil {
		return "", err
	}

	state := TokenState{Hash: hash, ExpiresAt: s.now().Add(s.ttl).UTC()}
	if err := s.users.SetResetToken(ctx, userID, state); err != nil {
		return "", err
	}
	return raw, nil
}

// ConsumeIfValid takes the reset state matching rawToken and returns its
// owner. A hash match clears the stored state even when the token turns out
// to be expired. Unknown and expired tokens both return
// [ErrTokenInvalidOrExpired].
func (s *ResetTokenStore) ConsumeIfValid(ctx context.Context, rawToken string) (*User, error) {
	if rawToken == "" {
		return nil, ErrTokenInvalidOrExpired
	}

	user, err := s.users.TakeResetToken(ctx, internal.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	if user.Reset.Expired(s.now()) {
		return nil, ErrTokenInvalidOrExpired
	}

	user.Reset = TokenState{}
	return user, nil
}

// Clear removes any pending reset token of userID.
func (s *ResetTokenStore) Clear(ctx context.Context, userID string) error {
	return s.users.SetResetToken(ctx, userID, TokenState{})
}
