package flows

import (
	"context"
	"fmt"
)

// ChangePasswordMetrics carries metric IDs used by the change-password flow.
type ChangePasswordMetrics struct {
	Success int
	Failure int
}

// ChangePasswordEvents carries audit event names used by the change-password flow.
type ChangePasswordEvents struct {
	Success string
	Failure string
}

// ChangePasswordErrors carries host-level sentinel errors used by the change-password flow.
type ChangePasswordErrors struct {
	EngineNotReady error
	NoUser         error
	InvalidInput   error
	Unavailable    error
}

// ChangePasswordDeps captures change-password dependencies.
type ChangePasswordDeps struct {
	Hooks

	RevokeRefresh bool

	GetUserByID         func(context.Context, string) (UserRecord, error)
	IsNotFound          func(error) bool
	CheckPasswordPolicy func(string) error
	HashPassword        func(string) (string, error)
	UpdatePasswordHash  func(context.Context, string, string) error
	ClearRefresh        func(context.Context, string) error

	Metrics ChangePasswordMetrics
	Events  ChangePasswordEvents
	Errors  ChangePasswordErrors
}

// RunChangePassword overwrites the password of an authenticated user.
func RunChangePassword(ctx context.Context, userID, newPassword string, deps ChangePasswordDeps) error {
	deps.fill()
	if deps.GetUserByID == nil ||
		deps.IsNotFound == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	fail := func(err error, why string) error {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, userID, "", err, reason(why))
		return err
	}

	if userID == "" {
		return fail(deps.Errors.NoUser, "missing_identity")
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if deps.IsNotFound(err) {
			return fail(deps.Errors.NoUser, "user_not_found")
		}
		return fail(fmt.Errorf("%w: %v", deps.Errors.Unavailable, err), "store_unavailable")
	}

	if newPassword == "" {
		return fail(deps.Errors.InvalidInput, "missing_password")
	}
	if deps.CheckPasswordPolicy != nil {
		if err := deps.CheckPasswordPolicy(newPassword); err != nil {
			return fail(fmt.Errorf("%w: %v", deps.Errors.InvalidInput, err), "password_policy")
		}
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", deps.Errors.Unavailable, err), "hash_failed")
	}
	newPassword = ""

	if err := deps.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if deps.IsNotFound(err) {
			return fail(deps.Errors.NoUser, "user_not_found")
		}
		return fail(fmt.Errorf("%w: %v", deps.Errors.Unavailable, err), "update_failed")
	}

	if deps.RevokeRefresh && deps.ClearRefresh != nil {
		if err := deps.ClearRefresh(ctx, user.ID); err != nil {
			deps.Warn("refresh revocation after password change failed", "user_id", user.ID, "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.ID, user.Email, nil, nil)
	return nil
}
