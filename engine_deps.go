package goAccount

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccount/internal/flows"
)

// buildFlowDeps wires every flow to the engine's stores, codec, limiter and
// observability hooks. Per-call closures are layered on top by the public
// methods.
func (e *Engine) buildFlowDeps() flows.Deps {
	hooks := flows.Hooks{
		Now:       e.now,
		ClientIP:  ClientIPFromContext,
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn: func(msg string, args ...any) {
			e.logger.Warn(msg, args...)
		},
	}

	findByToken := func(ctx context.Context, token string) (flows.UserRecord, error) {
		u, err := e.refresh.FindUserByToken(ctx, token)
		if err != nil {
			return flows.UserRecord{}, err
		}
		return toRecord(u), nil
	}
	getByID := func(ctx context.Context, id string) (flows.UserRecord, error) {
		u, err := e.users.GetUserByID(ctx, id)
		if err != nil {
			return flows.UserRecord{}, err
		}
		return toRecord(u), nil
	}
	getByEmail := func(ctx context.Context, email string) (flows.UserRecord, error) {
		u, err := e.users.GetUserByEmail(ctx, email)
		if err != nil {
			return flows.UserRecord{}, err
		}
		return toRecord(u), nil
	}

	resetMetrics := flows.PasswordResetMetrics{
		Request:         int(MetricPasswordResetRequest),
		DeliveryFailure: int(MetricPasswordResetDeliveryFailure),
		RateLimited:     int(MetricPasswordResetRateLimited),
		ConfirmSuccess:  int(MetricPasswordResetConfirmSuccess),
		ConfirmFailure:  int(MetricPasswordResetConfirmFailure),
	}
	resetEvents := flows.PasswordResetEvents{
		Request:     auditEventPasswordResetRequest,
		RateLimited: auditEventPasswordResetLimited,
		Confirm:     auditEventPasswordResetConfirm,
	}
	resetErrors := flows.PasswordResetErrors{
		EngineNotReady:        ErrEngineNotReady,
		InvalidInput:          ErrInvalidInput,
		NoSuchUser:            ErrNoSuchUser,
		DeliveryFailure:       ErrDeliveryFailure,
		RateLimited:           ErrResetRateLimited,
		TokenInvalidOrExpired: ErrTokenInvalidOrExpired,
		Unavailable:           ErrUnavailable,
	}

	deps := flows.Deps{
		Register: flows.RegisterDeps{
			Hooks:               hooks,
			EmailExists:         e.emailExists,
			CheckPasswordPolicy: e.checkPasswordPolicy,
			HashPassword:        e.hasher.Hash,
			IsAlreadyExists:     isAlreadyExists,
			Metrics: flows.RegisterMetrics{
				Success:   int(MetricRegisterSuccess),
				Duplicate: int(MetricRegisterDuplicate),
			},
			Events: flows.RegisterEvents{
				Success:   auditEventRegisterSuccess,
				Failure:   auditEventRegisterFailure,
				Duplicate: auditEventRegisterDuplicate,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady: ErrEngineNotReady,
				InvalidInput:   ErrInvalidInput,
				AlreadyExists:  ErrAlreadyExists,
				Unavailable:    ErrUnavailable,
			},
		},
		Login: flows.LoginDeps{
			Hooks:                  hooks,
			PasswordUpgradeOnLogin: true,
			GetUserByEmail:         getByEmail,
			IsNotFound:             isNotFound,
			VerifyPassword:         e.hasher.Verify,
			PasswordNeedsUpgrade:   e.hasher.NeedsUpgrade,
			HashPassword:           e.hasher.Hash,
			UpdatePasswordHash:     e.users.UpdatePasswordHash,
			RotateRefresh:          e.refresh.Rotate,
			IssueAccessToken:       e.codec.IssueAccessToken,
			Metrics: flows.LoginMetrics{
				LoginSuccess:     int(MetricLoginSuccess),
				LoginFailure:     int(MetricLoginFailure),
				LoginRateLimited: int(MetricLoginRateLimited),
			},
			Events: flows.LoginEvents{
				LoginSuccess:     auditEventLoginSuccess,
				LoginFailure:     auditEventLoginFailure,
				LoginRateLimited: auditEventLoginRateLimited,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				LoginRateLimited:   ErrLoginRateLimited,
				Unavailable:        ErrUnavailable,
			},
		},
		Refresh: flows.RefreshDeps{
			Hooks:            hooks,
			FindUserByToken:  findByToken,
			IsNotFound:       isNotFound,
			TokenSubject:     e.codec.RefreshSubject,
			IssueAccessToken: e.codec.IssueAccessToken,
			Metrics: flows.RefreshMetrics{
				Success: int(MetricRefreshSuccess),
				Failure: int(MetricRefreshFailure),
			},
			Events: flows.RefreshEvents{
				Success: auditEventRefreshSuccess,
				Failure: auditEventRefreshFailure,
			},
			Errors: flows.RefreshErrors{
				EngineNotReady: ErrEngineNotReady,
				MissingToken:   ErrMissingToken,
				NotFound:       ErrNotFound,
				TokenMismatch:  ErrTokenMismatch,
				TokenExpired:   ErrTokenExpired,
				Unavailable:    ErrUnavailable,
			},
		},
		Logout: flows.LogoutDeps{
			Hooks:           hooks,
			FindUserByToken: findByToken,
			IsNotFound:      isNotFound,
			ClearRefresh:    e.refresh.Clear,
			Metrics:         flows.LogoutMetrics{Logout: int(MetricLogout)},
			Events:          flows.LogoutEvents{Logout: auditEventLogout},
			Errors: flows.LogoutErrors{
				EngineNotReady: ErrEngineNotReady,
				Unavailable:    ErrUnavailable,
			},
		},
		ChangePassword: flows.ChangePasswordDeps{
			Hooks:               hooks,
			RevokeRefresh:       e.config.Security.RevokeRefreshOnPasswordChange,
			GetUserByID:         getByID,
			IsNotFound:          isNotFound,
			CheckPasswordPolicy: e.checkPasswordPolicy,
			HashPassword:        e.hasher.Hash,
			UpdatePasswordHash:  e.users.UpdatePasswordHash,
			ClearRefresh:        e.refresh.Clear,
			Metrics: flows.ChangePasswordMetrics{
				Success: int(MetricPasswordChangeSuccess),
				Failure: int(MetricPasswordChangeFailure),
			},
			Events: flows.ChangePasswordEvents{
				Success: auditEventPasswordChangeSuccess,
				Failure: auditEventPasswordChangeFailure,
			},
			Errors: flows.ChangePasswordErrors{
				EngineNotReady: ErrEngineNotReady,
				NoUser:         ErrNoUser,
				InvalidInput:   ErrInvalidInput,
				Unavailable:    ErrUnavailable,
			},
		},
		ForgotPassword: flows.ForgotPasswordDeps{
			Hooks:           hooks,
			GetUserByEmail:  getByEmail,
			IsNotFound:      isNotFound,
			IssueResetToken: e.reset.Issue,
			ClearResetToken: e.reset.Clear,
			SendResetEmail:  e.sendResetEmail,
			Metrics:         resetMetrics,
			Events:          resetEvents,
			Errors:          resetErrors,
		},
		ResetPassword: flows.ResetPasswordDeps{
			Hooks:               hooks,
			RevokeRefresh:       e.config.Security.RevokeRefreshOnPasswordChange,
			CheckPasswordPolicy: e.checkPasswordPolicy,
			ConsumeResetToken: func(ctx context.Context, raw string) (flows.UserRecord, error) {
				u, err := e.reset.ConsumeIfValid(ctx, raw)
				if err != nil {
					return flows.UserRecord{}, err
				}
				return toRecord(u), nil
			},
			HashPassword:       e.hasher.Hash,
			UpdatePasswordHash: e.users.UpdatePasswordHash,
			ClearRefresh:       e.refresh.Clear,
			Metrics:            resetMetrics,
			Events:             resetEvents,
			Errors:             resetErrors,
		},
		Validate: flows.ValidateDeps{
			Now:               e.now,
			VerifyAccessToken: e.codec.VerifyAccessToken,
			Observe: func(d time.Duration) {
				if e.metrics.LatencyEnabled() {
					e.metrics.Observe(MetricValidateLatency, d)
				}
			},
			Errors: flows.ValidateErrors{
				EngineNotReady: ErrEngineNotReady,
				TokenInvalid:   ErrTokenInvalid,
			},
		},
	}

	if e.limiter != nil {
		if e.config.Security.EnableLoginThrottle {
			deps.Login.CheckLoginRate = e.limiter.CheckLogin
			deps.Login.IncrementLoginRate = e.limiter.IncrementLogin
			deps.Login.ResetLoginRate = e.limiter.ResetLogin
			deps.Login.IsRateLimited = isRateLimited
		}
		if e.config.PasswordReset.EnableRequestThrottle {
			deps.ForgotPassword.CheckRequestRate = e.limiter.CheckResetRequest
			deps.ForgotPassword.IsRateLimited = isRateLimited
		}
	}

	return deps
}
