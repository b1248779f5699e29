package flows

import (
	"context"
	"time"
)

// UserRecord is the flow-local view of a stored user.
type UserRecord struct {
	ID               string
	Email            string
	PasswordHash     string
	IsBlocked        bool
	RefreshExpiresAt time.Time
}

// Hooks carries the clock and observability callbacks every flow shares.
// Nil members are replaced with no-ops before a flow runs.
type Hooks struct {
	Now       func() time.Time
	ClientIP  func(context.Context) string
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, email string, err error, metadata func() map[string]string)
	Warn      func(string, ...any)
}

func (h *Hooks) fill() {
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.ClientIP == nil {
		h.ClientIP = func(context.Context) string { return "" }
	}
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, ...any) {}
	}
}

// isRateLimited reports whether a throttle error means the budget is spent
// rather than the limiter backend failing. Without a classifier every error
// counts as spent.
func isRateLimited(classify func(error) bool, err error) bool {
	return classify == nil || classify(err)
}

func reason(r string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": r}
	}
}

// Deps groups flow dependency sets. The engine builds this once and delegates
// each public method to the matching Run function.
type Deps struct {
	Register       RegisterDeps
	Login          LoginDeps
	Refresh        RefreshDeps
	Logout         LogoutDeps
	ChangePassword ChangePasswordDeps
	ForgotPassword ForgotPasswordDeps
	ResetPassword  ResetPasswordDeps
	Validate       ValidateDeps
}
