package goAccount_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/refresh"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine *goAccount.Engine
	store  *memory.Store
	mailer *mail.Recorder
	clock  *testClock
	cfg    goAccount.Config
}

func testConfig() goAccount.Config {
	cfg := goAccount.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(strings.Repeat("s", 32))
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*goAccount.Config, *goAccount.Builder)) *testEnv {
	t.Helper()

	clock := newTestClock()
	env := &testEnv{
		store:  memory.New(memory.WithClock(clock.Now)),
		mailer: &mail.Recorder{},
		clock:  clock,
		cfg:    testConfig(),
	}

	b := goAccount.New()
	if mutate != nil {
		mutate(&env.cfg, b)
	}
	engine, err := b.
		WithConfig(env.cfg).
		WithUserStore(env.store).
		WithMailer(env.mailer).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) register(t *testing.T, email, password string) *goAccount.User {
	t.Helper()
	u, err := env.engine.Register(context.Background(), goAccount.NewUser{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return u
}

func (env *testEnv) login(t *testing.T, email, password string) *goAccount.LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", email, err)
	}
	return res
}

func (env *testEnv) resetTokenFromMail(t *testing.T) string {
	t.Helper()
	msg, ok := env.mailer.Last()
	if !ok {
		t.Fatal("expected a reset email")
	}
	base := env.cfg.PasswordReset.LinkBaseURL
	i := strings.Index(msg.HTML, base)
	if i < 0 {
		t.Fatalf("reset link missing from body: %s", msg.HTML)
	}
	rest := msg.HTML[i+len(base):]
	end := strings.IndexByte(rest, '"')
	if end <= 0 {
		t.Fatalf("malformed reset link in body: %s", msg.HTML)
	}
	return rest[:end]
}

func TestRegisterLoginRefreshScenario(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	u := env.register(t, "  Alice@Example.com ", "pw123")
	if u.ID == "" {
		t.Fatal("expected assigned id")
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash == "pw123" || !strings.HasPrefix(u.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", u.PasswordHash)
	}

	res := env.login(t, "alice@example.com", "pw123")
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if res.User.ID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, res.User.ID)
	}
	if want := env.clock.Now().Add(72 * time.Hour); !res.RefreshExpiresAt.Equal(want) {
		t.Fatalf("expected refresh expiry %v, got %v", want, res.RefreshExpiresAt)
	}

	stored, err := env.store.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if stored.Refresh.Hash != refresh.Hash(res.RefreshToken) {
		t.Fatal("expected stored refresh hash to match issued token")
	}
	if stored.Refresh.Hash == res.RefreshToken {
		t.Fatal("raw refresh token must not be stored")
	}

	uid, err := env.engine.ValidateAccess(ctx, res.AccessToken)
	if err != nil || uid != u.ID {
		t.Fatalf("ValidateAccess = %q, %v", uid, err)
	}

	env.clock.Advance(time.Hour)
	rr, err := env.engine.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if rr.UserID != u.ID {
		t.Fatalf("expected refresh for %s, got %s", u.ID, rr.UserID)
	}
	if uid, err := env.engine.ValidateAccess(ctx, rr.AccessToken); err != nil || uid != u.ID {
		t.Fatalf("refreshed access token invalid: %q, %v", uid, err)
	}
}

func TestRegisterRejectsDuplicateAndEmptyInput(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.register(t, "alice@example.com", "pw123")

	_, err := env.engine.Register(ctx, goAccount.NewUser{Email: "ALICE@example.com", Password: "other"})
	if !errors.Is(err, goAccount.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if env.store.Len() != 1 {
		t.Fatalf("expected one stored user, got %d", env.store.Len())
	}

	// The duplicate wins over a missing password.
	_, err = env.engine.Register(ctx, goAccount.NewUser{Email: "alice@example.com", Password: ""})
	if !errors.Is(err, goAccount.ErrAlreadyExists) {
		t.Fatalf("taken email with empty password: expected ErrAlreadyExists, got %v", err)
	}

	for _, in := range []goAccount.NewUser{
		{Email: "", Password: "pw"},
		{Email: "bob@example.com", Password: ""},
		{Email: "   ", Password: "pw"},
	} {
		if _, err := env.engine.Register(ctx, in); !errors.Is(err, goAccount.ErrInvalidInput) {
			t.Fatalf("Register(%+v): expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestRegisterEnforcesMinLength(t *testing.T) {
	env := newTestEnv(t, func(cfg *goAccount.Config, _ *goAccount.Builder) {
		cfg.Password.MinLength = 8
	})

	_, err := env.engine.Register(context.Background(), goAccount.NewUser{Email: "a@example.com", Password: "short"})
	if !errors.Is(err, goAccount.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.register(t, "alice@example.com", "pw123")

	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, goAccount.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "nobody@example.com", "pw123"); !errors.Is(err, goAccount.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	if err := env.store.SetBlocked(ctx, u.ID, true); err != nil {
		t.Fatalf("SetBlocked failed: %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "pw123"); !errors.Is(err, goAccount.ErrInvalidCredentials) {
		t.Fatalf("blocked user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSecondLoginInvalidatesFirstRefreshToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")

	first := env.login(t, "alice@example.com", "pw123")
	env.clock.Advance(time.Second)
	second := env.login(t, "alice@example.com", "pw123")

	if first.RefreshToken == second.RefreshToken {
		t.Fatal("expected a fresh refresh token per login")
	}
	if _, err := env.engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, goAccount.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for replaced token, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("expected latest token to work, got %v", err)
	}
}

func TestRefreshDoesNotRotate(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	for i := 0; i < 3; i++ {
		env.clock.Advance(time.Minute)
		if _, err := env.engine.Refresh(ctx, res.RefreshToken); err != nil {
			t.Fatalf("refresh %d failed: %v", i, err)
		}
	}
}

func TestRefreshErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	if _, err := env.engine.Refresh(ctx, ""); !errors.Is(err, goAccount.ErrMissingToken) {
		t.Fatalf("empty: expected ErrMissingToken, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, "not-a-token"); !errors.Is(err, goAccount.ErrNotFound) {
		t.Fatalf("garbage: expected ErrNotFound, got %v", err)
	}

	// A token minted for another subject whose hash is stored on this user.
	forged, err := refresh.Issue("someone-else")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	state := goAccount.TokenState{Hash: refresh.Hash(forged), ExpiresAt: env.clock.Now().Add(time.Hour)}
	if err := env.store.SetRefreshToken(ctx, u.ID, state); err != nil {
		t.Fatalf("SetRefreshToken failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, forged); !errors.Is(err, goAccount.ErrTokenMismatch) {
		t.Fatalf("forged: expected ErrTokenMismatch, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, goAccount.ErrNotFound) {
		t.Fatalf("overwritten: expected ErrNotFound, got %v", err)
	}
}

func TestRefreshBlockedUser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	if err := env.store.SetBlocked(ctx, u.ID, true); err != nil {
		t.Fatalf("SetBlocked failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, goAccount.ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}
}

func TestRefreshExpiry(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	env.clock.Advance(72*time.Hour - time.Second)
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("expected token valid just before expiry, got %v", err)
	}

	env.clock.Advance(time.Second)
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, goAccount.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at expiry, got %v", err)
	}
}

func TestValidateAccessErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	if _, err := env.engine.ValidateAccess(ctx, ""); !errors.Is(err, goAccount.ErrTokenInvalid) {
		t.Fatalf("empty: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := env.engine.ValidateAccess(ctx, "a.b.c"); !errors.Is(err, goAccount.ErrTokenInvalid) {
		t.Fatalf("garbage: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := env.engine.ValidateAccess(ctx, res.RefreshToken); !errors.Is(err, goAccount.ErrTokenInvalid) {
		t.Fatalf("refresh token as access: expected ErrTokenInvalid, got %v", err)
	}

	env.clock.Advance(16 * time.Minute)
	if _, err := env.engine.ValidateAccess(ctx, res.AccessToken); !errors.Is(err, goAccount.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	if err := env.engine.Logout(ctx, res.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, goAccount.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after logout, got %v", err)
	}
	stored, _ := env.store.GetUserByID(ctx, u.ID)
	if !stored.Refresh.IsZero() {
		t.Fatal("expected refresh state cleared")
	}

	if err := env.engine.Logout(ctx, res.RefreshToken); err != nil {
		t.Fatalf("second logout must be a no-op, got %v", err)
	}
	if err := env.engine.Logout(ctx, ""); err != nil {
		t.Fatalf("empty logout must be a no-op, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	if err := env.engine.ChangePassword(ctx, u.ID, "newpw"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "pw123"); !errors.Is(err, goAccount.ErrInvalidCredentials) {
		t.Fatalf("old password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("refresh must survive without revocation, got %v", err)
	}
	env.login(t, "alice@example.com", "newpw")

	if err := env.engine.ChangePassword(ctx, "missing", "newpw"); !errors.Is(err, goAccount.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
	if err := env.engine.ChangePassword(ctx, u.ID, ""); !errors.Is(err, goAccount.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestChangePasswordRevokesRefresh(t *testing.T) {
	env := newTestEnv(t, func(cfg *goAccount.Config, _ *goAccount.Builder) {
		cfg.Security.RevokeRefreshOnPasswordChange = true
	})
	ctx := context.Background()
	u := env.register(t, "alice@example.com", "pw123")
	res := env.login(t, "alice@example.com", "pw123")

	if err := env.engine.ChangePassword(ctx, u.ID, "newpw"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, goAccount.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revocation, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.register(t, "alice@example.com", "pw123")

	got, err := env.engine.GetUser(ctx, u.ID)
	if err != nil || got.Email != "alice@example.com" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}
	if _, err := env.engine.GetUser(ctx, "missing"); !errors.Is(err, goAccount.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestBuildRequiresDependencies(t *testing.T) {
	cfg := testConfig()

	if _, err := goAccount.New().WithConfig(cfg).WithMailer(&mail.Recorder{}).Build(); err == nil {
		t.Fatal("expected error without user store")
	}
	if _, err := goAccount.New().WithConfig(cfg).WithUserStore(memory.New()).Build(); err == nil {
		t.Fatal("expected error without mailer")
	}

	cfg.Security.EnableLoginThrottle = true
	if _, err := goAccount.New().WithConfig(cfg).WithUserStore(memory.New()).WithMailer(&mail.Recorder{}).Build(); err == nil {
		t.Fatal("expected error for throttle without redis")
	}

	b := goAccount.New().WithConfig(testConfig()).WithUserStore(memory.New()).WithMailer(&mail.Recorder{})
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var engine *goAccount.Engine
	ctx := context.Background()

	if _, err := engine.Login(ctx, "a@example.com", "pw"); !errors.Is(err, goAccount.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.ValidateAccess(ctx, "x"); !errors.Is(err, goAccount.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	engine.Close()
}

func newRedisEnv(t *testing.T, mutate func(*goAccount.Config)) (*testEnv, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, func(cfg *goAccount.Config, b *goAccount.Builder) {
		mutate(cfg)
		b.WithRedis(rdb)
	})
	return env, mr
}

func TestLoginThrottle(t *testing.T) {
	env, mr := newRedisEnv(t, func(cfg *goAccount.Config) {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.MaxLoginAttempts = 3
		cfg.Security.LoginCooldownDuration = time.Minute
	})
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")

	for i := 0; i < 3; i++ {
		if _, err := env.engine.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, goAccount.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "pw123"); !errors.Is(err, goAccount.ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	env.login(t, "alice@example.com", "pw123")
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	env, _ := newRedisEnv(t, func(cfg *goAccount.Config) {
		cfg.Security.EnableLoginThrottle = true
		cfg.Security.MaxLoginAttempts = 2
		cfg.Security.LoginCooldownDuration = time.Minute
	})
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")

	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, goAccount.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	env.login(t, "alice@example.com", "pw123")
	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, goAccount.ErrInvalidCredentials) {
		t.Fatalf("expected counter reset after success, got %v", err)
	}
}

func TestForgotPasswordThrottle(t *testing.T) {
	env, _ := newRedisEnv(t, func(cfg *goAccount.Config) {
		cfg.PasswordReset.EnableRequestThrottle = true
		cfg.PasswordReset.MaxRequests = 2
		cfg.PasswordReset.RequestCooldown = time.Minute
	})
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")

	for i := 0; i < 2; i++ {
		if err := env.engine.ForgotPassword(ctx, "alice@example.com"); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if err := env.engine.ForgotPassword(ctx, "alice@example.com"); !errors.Is(err, goAccount.ErrResetRateLimited) {
		t.Fatalf("expected ErrResetRateLimited, got %v", err)
	}
	if got := len(env.mailer.Sent()); got != 2 {
		t.Fatalf("expected 2 emails, got %d", got)
	}
}

func TestThrottleOutageIsUnavailable(t *testing.T) {
	env, mr := newRedisEnv(t, func(cfg *goAccount.Config) {
		cfg.Security.EnableLoginThrottle = true
		cfg.PasswordReset.EnableRequestThrottle = true
	})
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")

	mr.SetError("ERR throttle backend down")

	_, err := env.engine.Login(ctx, "alice@example.com", "pw123")
	if !errors.Is(err, goAccount.ErrUnavailable) || errors.Is(err, goAccount.ErrLoginRateLimited) {
		t.Fatalf("login: expected ErrUnavailable, got %v", err)
	}
	err = env.engine.ForgotPassword(ctx, "alice@example.com")
	if !errors.Is(err, goAccount.ErrUnavailable) || errors.Is(err, goAccount.ErrResetRateLimited) {
		t.Fatalf("forgot password: expected ErrUnavailable, got %v", err)
	}

	mr.SetError("")
	env.login(t, "alice@example.com", "pw123")
}

func TestAuditAndMetrics(t *testing.T) {
	sink := goAccount.NewChannelSink(64)
	env := newTestEnv(t, func(cfg *goAccount.Config, b *goAccount.Builder) {
		cfg.Audit.Enabled = true
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
		b.WithAuditSink(sink)
	})
	ctx := goAccount.WithClientIP(context.Background(), "203.0.113.7")

	u := env.register(t, "alice@example.com", "pw123")
	env.login(t, "alice@example.com", "pw123")
	if _, err := env.engine.Login(ctx, "alice@example.com", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}
	env.engine.Close()

	var events []goAccount.AuditEvent
	for done := false; !done; {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		default:
			done = true
		}
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}

	want := []string{"register_success", "login_success", "login_failure"}
	for i, ev := range events {
		if ev.EventType != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], ev.EventType)
		}
		if ev.Email != "" {
			t.Fatalf("event %d carries an email address", i)
		}
	}
	if events[1].UserID != u.ID || !events[1].Success {
		t.Fatalf("unexpected login event: %+v", events[1])
	}
	fail := events[2]
	if fail.Success || fail.IP != "203.0.113.7" || fail.Error != "invalid_credentials" {
		t.Fatalf("unexpected failure event: %+v", fail)
	}
	if fail.Metadata["reason"] != "password_mismatch" || fail.Metadata["email_domain"] != "example.com" {
		t.Fatalf("unexpected failure metadata: %+v", fail.Metadata)
	}
	if !fail.Timestamp.Equal(env.clock.Now()) {
		t.Fatalf("expected engine clock timestamp, got %v", fail.Timestamp)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[goAccount.MetricRegisterSuccess] != 1 ||
		snap.Counters[goAccount.MetricLoginSuccess] != 1 ||
		snap.Counters[goAccount.MetricLoginFailure] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	var logins uint64
	for _, n := range snap.Histograms[goAccount.MetricLoginLatency] {
		logins += n
	}
	if logins != 2 {
		t.Fatalf("expected 2 login latency samples, got %d", logins)
	}
	if env.engine.AuditDropped() != 0 {
		t.Fatalf("expected no dropped events")
	}
}

func TestConcurrentLoginsLeaveOneLiveToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.register(t, "alice@example.com", "pw123")

	const n = 8
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.engine.Login(ctx, "alice@example.com", "pw123")
			if err == nil {
				tokens[i] = res.RefreshToken
			}
		}(i)
	}
	wg.Wait()

	var live atomic.Int32
	for _, tok := range tokens {
		if tok == "" {
			t.Fatal("expected every login to succeed")
		}
		if _, err := env.engine.Refresh(ctx, tok); err == nil {
			live.Add(1)
		}
	}
	if live.Load() != 1 {
		t.Fatalf("expected exactly one live refresh token, got %d", live.Load())
	}
}
