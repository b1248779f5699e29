package flows

import (
	"context"
	"fmt"
)

// RegisterMetrics carries metric IDs used by the register flow.
type RegisterMetrics struct {
	Success   int
	Duplicate int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	Success   string
	Failure   string
	Duplicate string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady error
	InvalidInput   error
	AlreadyExists  error
	Unavailable    error
}

// RegisterDeps captures register dependencies. CreateUser persists the
// account with the given hash and returns the assigned ID. EmailExists is
// optional; CreateUser must still report a duplicate that races past it.
type RegisterDeps struct {
	Hooks

	EmailExists         func(context.Context, string) (bool, error)
	CheckPasswordPolicy func(string) error
	HashPassword        func(string) (string, error)
	CreateUser          func(ctx context.Context, email, passwordHash string) (string, error)
	IsAlreadyExists     func(error) bool

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates input, hashes the password and creates the user.
// No tokens are issued.
func RunRegister(ctx context.Context, email, password string, deps RegisterDeps) (string, error) {
	deps.fill()
	if deps.HashPassword == nil || deps.CreateUser == nil || deps.IsAlreadyExists == nil {
		return "", deps.Errors.EngineNotReady
	}

	duplicate := func() (string, error) {
		deps.MetricInc(deps.Metrics.Duplicate)
		deps.EmitAudit(ctx, deps.Events.Duplicate, false, "", email, deps.Errors.AlreadyExists, nil)
		return "", deps.Errors.AlreadyExists
	}

	if email == "" {
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, deps.Errors.InvalidInput, reason("missing_fields"))
		return "", deps.Errors.InvalidInput
	}
	// A taken email is reported before any password problem.
	if deps.EmailExists != nil {
		exists, err := deps.EmailExists(ctx, email)
		if err != nil {
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, err, reason("lookup_failed"))
			return "", fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
		}
		if exists {
			return duplicate()
		}
	}
	if password == "" {
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, deps.Errors.InvalidInput, reason("missing_fields"))
		return "", deps.Errors.InvalidInput
	}
	if deps.CheckPasswordPolicy != nil {
		if err := deps.CheckPasswordPolicy(password); err != nil {
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, deps.Errors.InvalidInput, reason("password_policy"))
			return "", fmt.Errorf("%w: %v", deps.Errors.InvalidInput, err)
		}
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, err, reason("hash_failed"))
		return "", fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}
	password = ""

	userID, err := deps.CreateUser(ctx, email, hash)
	if err != nil {
		if deps.IsAlreadyExists(err) {
			return duplicate()
		}
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", email, err, reason("create_failed"))
		return "", fmt.Errorf("%w: %v", deps.Errors.Unavailable, err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, userID, email, nil, nil)
	return userID, nil
}
