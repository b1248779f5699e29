package goAccount

import (
	"context"
	"strings"

	"github.com/MrEthical07/goAccount/internal/flows"
)

// Register creates a user from in. The email is trimmed and lower-cased
// before the uniqueness check. No tokens are issued.
func (e *Engine) Register(ctx context.Context, in NewUser) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	var created *User
	deps := e.flows.Register
	deps.CreateUser = func(ctx context.Context, email, passwordHash string) (string, error) {
		u := &User{
			Email:        email,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Mobile:       strings.TrimSpace(in.Mobile),
			PasswordHash: passwordHash,
		}
		if err := e.users.CreateUser(ctx, u); err != nil {
			return "", err
		}
		created = u
		return u.ID, nil
	}

	if _, err := flows.RunRegister(ctx, normalizeEmail(in.Email), in.Password, deps); err != nil {
		e.logFailure(ctx, "register", err)
		return nil, err
	}
	return created.Clone(), nil
}

// ChangePassword replaces the password of an authenticated user. With
// Security.RevokeRefreshOnPasswordChange set, the stored refresh token is
// cleared as well.
func (e *Engine) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	if err := flows.RunChangePassword(ctx, userID, newPassword, e.flows.ChangePassword); err != nil {
		e.logFailure(ctx, "change_password", err)
		return err
	}
	return nil
}
