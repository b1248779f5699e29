package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/refresh"
)

// Login authenticates email and password, replaces the user's stored refresh
// token and issues a new access token. Any refresh token issued earlier stops
// working.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	start := e.now()
	defer e.observe(MetricLoginLatency, start)

	email = normalizeEmail(email)

	var found *User
	deps := e.flows.Login
	deps.GetUserByEmail = func(ctx context.Context, email string) (flows.UserRecord, error) {
		u, err := e.users.GetUserByEmail(ctx, email)
		if err != nil {
			return flows.UserRecord{}, err
		}
		found = u
		return toRecord(u), nil
	}

	res, err := flows.RunLogin(ctx, email, password, deps)
	if err != nil {
		e.logFailure(ctx, "login", err)
		return nil, err
	}

	found.Refresh = TokenState{
		Hash:      refresh.Hash(res.RefreshToken),
		ExpiresAt: res.RefreshExpiresAt,
	}
	return &LoginResult{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt,
		User:             found,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token is not rotated.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if e == nil || e.refresh == nil {
		return nil, ErrEngineNotReady
	}

	res, err := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)
	if err != nil {
		e.logFailure(ctx, "refresh", err)
		return nil, err
	}
	return &RefreshResult{
		AccessToken: res.AccessToken,
		UserID:      res.UserID,
	}, nil
}

// Logout clears the stored refresh token matching refreshToken. An empty or
// unknown token is not an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.refresh == nil {
		return ErrEngineNotReady
	}

	if err := flows.RunLogout(ctx, refreshToken, e.flows.Logout); err != nil {
		e.logFailure(ctx, "logout", err)
		return err
	}
	return nil
}
