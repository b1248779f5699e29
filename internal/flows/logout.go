package flows

import (
	"context"
	"fmt"
)

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout string
}

// LogoutErrors carries host-level sentinel errors used by the logout flow.
type LogoutErrors struct {
	EngineNotReady error
	Unavailable    error
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Hooks

	FindUserByToken func(context.Context, string) (UserRecord, error)
	IsNotFound      func(error) bool
	ClearRefresh    func(context.Context, string) error

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunLogout clears the stored refresh token of the user owning refreshToken.
// A missing or unknown token is not an error, so logging out twice succeeds.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) error {
	deps.fill()
	if deps.FindUserByToken == nil || deps.IsNotFound == nil || deps.ClearRefresh == nil {
		return deps.Errors.EngineNotReady
	}

	if refreshToken == "" {
		deps.EmitAudit(ctx, deps.Events.Logout, true, "", "", nil, reason("no_token"))
		return nil
	}

	user, err := deps.FindUserByToken(ctx, refreshToken)
	if err != nil {
		if deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.Logout, true, "", "", nil, reason("token_not_found"))
			return nil
		}
		return fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	if err := deps.ClearRefresh(ctx, user.ID); err != nil {
		if deps.IsNotFound(err) {
			return nil
		}
		deps.EmitAudit(ctx, deps.Events.Logout, false, user.ID, "", err, reason("clear_failed"))
		return fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, user.ID, "", nil, nil)
	return nil
}
