package goAccount

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccount/refresh"
)

// RefreshTokenStore keeps the single live refresh token of each user as a
// hash plus expiry on the user record.
type RefreshTokenStore struct {
	users UserStore
	codec *TokenCodec
	ttl   time.Duration
	now   func() time.Time
}

// NewRefreshTokenStore returns a store that writes through users.
func NewRefreshTokenStore(users UserStore, codec *TokenCodec, ttl time.Duration, now func() time.Time) *RefreshTokenStore {
	if now == nil {
		now = time.Now
	}
	return &RefreshTokenStore{users: users, codec: codec, ttl: ttl, now: now}
}

// Rotate issues a new refresh token for userID and overwrites the stored
// one, so the previous token stops matching immediately.
func (s *RefreshTokenStore) Rotate(ctx context.Context, userID string) (string, time.Time, error) {
	token, err := s.codec.IssueRefreshToken(userID)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := s.now().Add(s.ttl).UTC()
	state := TokenState{Hash: refresh.Hash(token), ExpiresAt: expiresAt}
	if err := s.users.SetRefreshToken(ctx, userID, state); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// FindUserByToken returns the user whose stored hash matches token, or
// [ErrNotFound].
func (s *RefreshTokenStore) FindUserByToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.users.GetUserByRefreshHash(ctx, refresh.Hash(token))
}

// Clear removes the stored refresh token of userID. Clearing an absent
// token is a no-op.
func (s *RefreshTokenStore) Clear(ctx context.Context, userID string) error {
	return s.users.SetRefreshToken(ctx, userID, TokenState{})
}
