package flows

import (
	"context"
	"fmt"
	"time"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	LoginRateLimited   error
	Unavailable        error
}

// LoginDeps captures login dependencies. The rate callbacks are optional.
type LoginDeps struct {
	Hooks

	PasswordUpgradeOnLogin bool

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error
	IsRateLimited      func(error) bool

	GetUserByEmail       func(context.Context, string) (UserRecord, error)
	IsNotFound           func(error) bool
	VerifyPassword       func(string, string) (bool, error)
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)
	UpdatePasswordHash   func(context.Context, string, string) error

	RotateRefresh    func(context.Context, string) (string, time.Time, error)
	IssueAccessToken func(string) (string, error)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies credentials, rotates the stored refresh token and issues
// an access token. Unknown email, wrong password and a blocked account all
// return InvalidCredentials.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	deps.fill()
	if deps.GetUserByEmail == nil ||
		deps.IsNotFound == nil ||
		deps.VerifyPassword == nil ||
		deps.RotateRefresh == nil ||
		deps.IssueAccessToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIP(ctx)

	rateLimited := func(userID string) error {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, userID, email, deps.Errors.LoginRateLimited, nil)
		return deps.Errors.LoginRateLimited
	}

	// throttleFailed turns a limiter error into the rate-limit error, or into
	// Unavailable when the limiter backend itself failed.
	throttleFailed := func(userID string, err error) error {
		if isRateLimited(deps.IsRateLimited, err) {
			return rateLimited(userID)
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, email, err, reason("limiter_unavailable"))
		return fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	// fail records a rejected attempt. Once the budget is spent the caller
	// sees the rate-limit error instead.
	fail := func(userID, why string) error {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, email, ip); err != nil {
				return throttleFailed(userID, err)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, email, deps.Errors.InvalidCredentials, reason(why))
		return deps.Errors.InvalidCredentials
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			return nil, throttleFailed("", err)
		}
	}

	if email == "" || password == "" {
		return nil, fail("", "missing_fields")
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if deps.IsNotFound(err) {
			return nil, fail("", "user_not_found")
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", email, err, reason("store_unavailable"))
		return nil, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, fail(user.ID, "password_mismatch")
	}
	if user.IsBlocked {
		return nil, fail(user.ID, "account_blocked")
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsUpgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgraded, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
					deps.Warn("password hash upgrade update failed", "user_id", user.ID, "error", err)
				}
			} else {
				deps.Warn("password hash upgrade generation failed", "user_id", user.ID, "error", err)
			}
		}
	}
	password = ""

	refreshToken, refreshExpiresAt, err := deps.RotateRefresh(ctx, user.ID)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, email, err, reason("refresh_rotate_failed"))
		return nil, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	access, err := deps.IssueAccessToken(user.ID)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, email, err, reason("issue_access_failed"))
		return nil, err
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email, ip); err != nil {
			deps.Warn("login limiter reset failed", "user_id", user.ID, "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, email, nil, nil)

	return &LoginResult{
		UserID:           user.ID,
		AccessToken:      access,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}
