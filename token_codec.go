package goAccount

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/refresh"
)

// TokenCodec signs and verifies access tokens and mints opaque refresh
// tokens. It holds no per-user state.
type TokenCodec struct {
	jwt *jwt.Manager
}

// NewTokenCodec builds a codec from the JWT section of cfg.
func NewTokenCodec(cfg JWTConfig, now func() time.Time) (*TokenCodec, error) {
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		PrivateKey:    cfg.PrivateKey,
		PublicKey:     cfg.PublicKey,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		Leeway:        cfg.Leeway,
		KeyID:         cfg.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	return &TokenCodec{jwt: m}, nil
}

// IssueAccessToken signs a short-lived token for userID.
func (c *TokenCodec) IssueAccessToken(userID string) (string, error) {
	return c.jwt.CreateAccess(userID)
}

// VerifyAccessToken returns the user id carried by token. An expired but
// correctly signed token yields [ErrTokenExpired]; every other failure
// yields [ErrTokenInvalid].
func (c *TokenCodec) VerifyAccessToken(token string) (string, error) {
	claims, err := c.jwt.ParseAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.UID, nil
}

// IssueRefreshToken mints an unguessable refresh token bound to userID.
// Its validity is decided by the store, not by the token itself.
func (c *TokenCodec) IssueRefreshToken(userID string) (string, error) {
	return refresh.Issue(userID)
}

// RefreshSubject returns the user id embedded in a refresh token.
func (c *TokenCodec) RefreshSubject(token string) (string, error) {
	return refresh.Subject(token)
}
