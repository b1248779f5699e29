package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAppConfig() *appConfig {
	cfg := defaultAppConfig()
	cfg.Account.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	cfg.Account.Password.Memory = 8 * 1024
	cfg.Account.Password.Time = 1
	cfg.Account.Password.Parallelism = 1
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServeFlagsApply(t *testing.T) {
	cmd := NewServeCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--addr", ":9999", "--store", "redis"}))

	cfg := defaultAppConfig()
	flags := &serveFlags{addr: ":9999", store: "redis", logFormat: "text"}
	flags.apply(cmd.Flags(), cfg)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "json", cfg.Log.Format, "unchanged flags must not override config")
}

func TestBuildAppMemory(t *testing.T) {
	a, err := buildApp(context.Background(), testAppConfig(), discardLogger())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.engine.Register(context.Background(), goAccountUser("a@example.com"))
	require.NoError(t, err)
}

func TestBuildAppRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testAppConfig()
	cfg.Store.Driver = "redis"
	cfg.Store.RedisAddr = mr.Addr()
	cfg.Account.Security.EnableLoginThrottle = true

	a, err := buildApp(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.engine.Register(context.Background(), goAccountUser("b@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys(), "user should be stored in redis")
}

func TestBuildAppFallsBackToInProcessRedis(t *testing.T) {
	cfg := testAppConfig()
	cfg.Account.PasswordReset.EnableRequestThrottle = true

	a, err := buildApp(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	a.Close()
}

func TestBuildAppRejectsInvalidEngineConfig(t *testing.T) {
	cfg := testAppConfig()
	cfg.Account.JWT.PrivateKey = nil

	_, err := buildApp(context.Background(), cfg, discardLogger())
	require.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	cfg := testAppConfig()
	cfg.Account.Metrics.Enabled = true

	a, err := buildApp(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.engine.Register(context.Background(), goAccountUser("c@example.com"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	metricsHandler(a.engine).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goaccount_register_success_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func goAccountUser(email string) goAccount.NewUser {
	return goAccount.NewUser{Email: email, Password: "pw123"}
}
