package flows

import (
	"context"
	"errors"
	"fmt"
)

// PasswordResetMetrics carries metric IDs used by the forgot and reset flows.
type PasswordResetMetrics struct {
	Request         int
	DeliveryFailure int
	RateLimited     int
	ConfirmSuccess  int
	ConfirmFailure  int
}

// PasswordResetEvents carries audit event names used by the forgot and reset flows.
type PasswordResetEvents struct {
	Request     string
	RateLimited string
	Confirm     string
}

// PasswordResetErrors carries host-level sentinel errors used by the forgot
// and reset flows.
type PasswordResetErrors struct {
	EngineNotReady        error
	InvalidInput          error
	NoSuchUser            error
	DeliveryFailure       error
	RateLimited           error
	TokenInvalidOrExpired error
	Unavailable           error
}

// ForgotPasswordDeps captures forgot-password dependencies.
type ForgotPasswordDeps struct {
	Hooks

	CheckRequestRate func(context.Context, string) error
	IsRateLimited    func(error) bool
	GetUserByEmail   func(context.Context, string) (UserRecord, error)
	IsNotFound       func(error) bool
	IssueResetToken  func(context.Context, string) (string, error)
	ClearResetToken  func(context.Context, string) error
	SendResetEmail   func(ctx context.Context, to, rawToken string) error

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunForgotPassword issues a reset token for email and hands it to the
// mailer. A token that could not be delivered is cleared again.
func RunForgotPassword(ctx context.Context, email string, deps ForgotPasswordDeps) error {
	deps.fill()
	if deps.GetUserByEmail == nil ||
		deps.IsNotFound == nil ||
		deps.IssueResetToken == nil ||
		deps.SendResetEmail == nil {
		return deps.Errors.EngineNotReady
	}

	if email == "" {
		return deps.Errors.InvalidInput
	}

	if deps.CheckRequestRate != nil {
		if err := deps.CheckRequestRate(ctx, email); err != nil {
			if !isRateLimited(deps.IsRateLimited, err) {
				deps.EmitAudit(ctx, deps.Events.Request, false, "", email, err, reason("limiter_unavailable"))
				return fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
			}
			deps.MetricInc(deps.Metrics.RateLimited)
			deps.EmitAudit(ctx, deps.Events.RateLimited, false, "", email, deps.Errors.RateLimited, nil)
			return deps.Errors.RateLimited
		}
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.Request, false, "", email, deps.Errors.NoSuchUser, reason("user_not_found"))
			return deps.Errors.NoSuchUser
		}
		return fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	raw, err := deps.IssueResetToken(ctx, user.ID)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Request, false, user.ID, email, err, reason("issue_failed"))
		return fmt.Errorf("%w: %v", deps.Errors.DeliveryFailure, err)
	}

	if err := deps.SendResetEmail(ctx, user.Email, raw); err != nil {
		deps.MetricInc(deps.Metrics.DeliveryFailure)
		deps.EmitAudit(ctx, deps.Events.Request, false, user.ID, email, deps.Errors.DeliveryFailure, reason("delivery_failed"))
		if deps.ClearResetToken != nil {
			if clearErr := deps.ClearResetToken(ctx, user.ID); clearErr != nil {
				deps.Warn("reset token cleanup after delivery failure failed", "user_id", user.ID, "error", clearErr)
			}
		}
		return fmt.Errorf("%w: %v", deps.Errors.DeliveryFailure, err)
	}

	deps.MetricInc(deps.Metrics.Request)
	deps.EmitAudit(ctx, deps.Events.Request, true, user.ID, email, nil, nil)
	return nil
}

// ResetPasswordDeps captures reset-password dependencies. ConsumeResetToken
// returns Errors.TokenInvalidOrExpired for a miss or an expired token and
// clears the stored reset state on any hash match.
type ResetPasswordDeps struct {
	Hooks

	RevokeRefresh bool

	CheckPasswordPolicy func(string) error
	ConsumeResetToken   func(context.Context, string) (UserRecord, error)
	HashPassword        func(string) (string, error)
	UpdatePasswordHash  func(context.Context, string, string) error
	ClearRefresh        func(context.Context, string) error

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunResetPassword consumes rawToken and sets newPassword on its owner.
// The password policy is checked before the token is consumed.
func RunResetPassword(ctx context.Context, rawToken, newPassword string, deps ResetPasswordDeps) error {
	deps.fill()
	if deps.ConsumeResetToken == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	fail := func(userID string, err error, why string) error {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, userID, "", err, reason(why))
		return err
	}

	if rawToken == "" {
		return fail("", deps.Errors.TokenInvalidOrExpired, "missing_token")
	}
	if newPassword == "" {
		return fail("", deps.Errors.InvalidInput, "missing_password")
	}
	if deps.CheckPasswordPolicy != nil {
		if err := deps.CheckPasswordPolicy(newPassword); err != nil {
			return fail("", fmt.Errorf("%w: %v", deps.Errors.InvalidInput, err), "password_policy")
		}
	}

	user, err := deps.ConsumeResetToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, deps.Errors.TokenInvalidOrExpired) {
			return fail("", deps.Errors.TokenInvalidOrExpired, "token_invalid_or_expired")
		}
		return fail("", fmt.Errorf("%w: %v", deps.Errors.Unavailable, err), "store_unavailable")
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fail(user.ID, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err), "hash_failed")
	}
	newPassword = ""

	if err := deps.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fail(user.ID, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err), "update_failed")
	}

	if deps.RevokeRefresh && deps.ClearRefresh != nil {
		if err := deps.ClearRefresh(ctx, user.ID); err != nil {
			deps.Warn("refresh revocation after password reset failed", "user_id", user.ID, "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, user.ID, user.Email, nil, nil)
	return nil
}
