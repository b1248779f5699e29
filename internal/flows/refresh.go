package flows

import (
	"context"
	"fmt"
)

// RefreshResult is the flow-local refresh response shape.
type RefreshResult struct {
	UserID      string
	AccessToken string
}

// RefreshMetrics carries metric IDs used by the refresh flow.
type RefreshMetrics struct {
	Success int
	Failure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	Success string
	Failure string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	EngineNotReady error
	MissingToken   error
	NotFound       error
	TokenMismatch  error
	TokenExpired   error
	Unavailable    error
}

// RefreshDeps captures refresh dependencies. FindUserByToken resolves the
// record whose stored refresh hash matches the presented token and
// TokenSubject recovers the user id embedded in the token.
type RefreshDeps struct {
	Hooks

	FindUserByToken  func(context.Context, string) (UserRecord, error)
	IsNotFound       func(error) bool
	TokenSubject     func(string) (string, error)
	IssueAccessToken func(string) (string, error)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh mints a new access token for the owner of refreshToken. The
// refresh token itself is left in place.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (*RefreshResult, error) {
	deps.fill()
	if deps.FindUserByToken == nil ||
		deps.IsNotFound == nil ||
		deps.TokenSubject == nil ||
		deps.IssueAccessToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(userID string, err error, why string) error {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, userID, "", err, reason(why))
		return err
	}

	if refreshToken == "" {
		return nil, fail("", deps.Errors.MissingToken, "missing_token")
	}

	user, err := deps.FindUserByToken(ctx, refreshToken)
	if err != nil {
		if deps.IsNotFound(err) {
			return nil, fail("", deps.Errors.NotFound, "token_not_found")
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", "", err, reason("store_unavailable"))
		return nil, fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	// Decode failure, subject mismatch and a blocked owner share one error.
	subject, err := deps.TokenSubject(refreshToken)
	if err != nil {
		return nil, fail(user.ID, deps.Errors.TokenMismatch, "subject_decode_failed")
	}
	if subject != user.ID {
		return nil, fail(user.ID, deps.Errors.TokenMismatch, "subject_mismatch")
	}
	if user.IsBlocked {
		return nil, fail(user.ID, deps.Errors.TokenMismatch, "account_blocked")
	}

	if !deps.Now().Before(user.RefreshExpiresAt) {
		return nil, fail(user.ID, deps.Errors.TokenExpired, "token_expired")
	}

	access, err := deps.IssueAccessToken(user.ID)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID, "", err, reason("issue_access_failed"))
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.ID, "", nil, nil)

	return &RefreshResult{
		UserID:      user.ID,
		AccessToken: access,
	}, nil
}
