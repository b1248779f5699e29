package goAccount

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterFailure       = "register_failure"
	auditEventRegisterDuplicate     = "register_duplicate"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshFailure        = "refresh_failure"
	auditEventLogout                = "logout"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetLimited  = "password_reset_rate_limited"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
)

// AuditErrorCode is the stable, non-sensitive error label written to
// [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidCredentials    AuditErrorCode = "invalid_credentials"
	auditErrDuplicate             AuditErrorCode = "duplicate"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrMissingToken          AuditErrorCode = "missing_token"
	auditErrNotFound              AuditErrorCode = "not_found"
	auditErrTokenMismatch         AuditErrorCode = "token_mismatch"
	auditErrTokenExpired          AuditErrorCode = "token_expired"
	auditErrTokenInvalid          AuditErrorCode = "token_invalid"
	auditErrTokenInvalidOrExpired AuditErrorCode = "token_invalid_or_expired"
	auditErrUserNotFound          AuditErrorCode = "user_not_found"
	auditErrInvalidInput          AuditErrorCode = "invalid_input"
	auditErrDeliveryFailure       AuditErrorCode = "delivery_failure"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

// emitAudit is the flows.Hooks.EmitAudit implementation. Emails are kept
// out of the event body; only a domain hint is recorded.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if domain := emailDomain(email); domain != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["email_domain"] = domain
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func emailDomain(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return ""
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAlreadyExists):
		return auditErrDuplicate
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrResetRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrMissingToken):
		return auditErrMissingToken
	case errors.Is(err, ErrTokenMismatch):
		return auditErrTokenMismatch
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrTokenInvalidOrExpired):
		return auditErrTokenInvalidOrExpired
	case errors.Is(err, ErrNoUser),
		errors.Is(err, ErrNoSuchUser):
		return auditErrUserNotFound
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrDeliveryFailure):
		return auditErrDeliveryFailure
	case errors.Is(err, ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, e.now().Sub(start))
}
