package goAccount

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/password"
)

// Engine runs the account and session flows. Build one with [New] and share
// it; it is safe for concurrent use and holds no per-request state.
type Engine struct {
	config   Config
	users    UserStore
	mailer   Mailer
	codec    *TokenCodec
	refresh  *RefreshTokenStore
	reset    *ResetTokenStore
	hasher   *password.Argon2
	limiter  *rate.Limiter
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
	resetTpl *template.Template
	flows    flows.Deps
}

// Close stops the audit dispatcher after draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// AuditDropped returns the number of audit events discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters and histograms. With metrics
// disabled both maps are empty.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateAccess verifies an access token and returns its user id. It never
// touches the user store.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	return flows.RunValidate(accessToken, e.flows.Validate)
}

// GetUser returns the record of an authenticated caller, or [ErrNoUser]
// when it no longer exists.
func (e *Engine) GetUser(ctx context.Context, userID string) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrNoUser
	}

	u, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoUser
		}
		e.logFailure(ctx, "get_user", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return u, nil
}

// logFailure logs backend and delivery failures at Error and rejected
// requests at Debug.
func (e *Engine) logFailure(ctx context.Context, op string, err error) {
	if err == nil || e.logger == nil {
		return
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrDeliveryFailure) {
		e.logger.ErrorContext(ctx, "account operation failed", "op", op, "error", err)
		return
	}
	e.logger.DebugContext(ctx, "account operation rejected", "op", op, "error", err)
}

func (e *Engine) emailExists(ctx context.Context, email string) (bool, error) {
	if _, err := e.users.GetUserByEmail(ctx, email); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *Engine) checkPasswordPolicy(pw string) error {
	return e.hasher.CheckPolicy(pw)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isRateLimited(err error) bool {
	return errors.Is(err, rate.ErrRateLimited)
}

func isAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func toRecord(u *User) flows.UserRecord {
	if u == nil {
		return flows.UserRecord{}
	}
	return flows.UserRecord{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		IsBlocked:        u.IsBlocked,
		RefreshExpiresAt: u.Refresh.ExpiresAt,
	}
}
