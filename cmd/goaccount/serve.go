package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/mail"
	promexport "github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/MrEthical07/goAccount/store/postgres"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	addr        string
	metricsAddr string
	store       string
	logFormat   string
	logLevel    string
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the account HTTP API",
		Long: `Serve the account routes under /api/users, plus Prometheus metrics on a
separate listener when account metrics are enabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			flags.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "HTTP listen address (default from config, :4000)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "metrics listen address (empty keeps config value)")
	cmd.Flags().StringVar(&flags.store, "store", "", "user store: memory, redis or postgres")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "log format: json or text")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *serveFlags) apply(fs *pflag.FlagSet, cfg *appConfig) {
	if fs.Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if fs.Changed("metrics-addr") {
		cfg.Server.MetricsAddr = f.metricsAddr
	}
	if fs.Changed("store") {
		cfg.Store.Driver = f.store
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
}

// app is a built engine plus everything that must be released with it.
type app struct {
	engine  *goAccount.Engine
	closers []func()
}

func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires stores, mailer, throttling and audit from cfg.
func buildApp(ctx context.Context, cfg *appConfig, logger *slog.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	var client redis.UniversalClient
	redisClient := func() (redis.UniversalClient, error) {
		if client != nil {
			return client, nil
		}
		addr := cfg.Store.RedisAddr
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, oops.Code("REDIS_START_FAILED").Wrap(err)
			}
			a.closers = append(a.closers, mr.Close)
			addr = mr.Addr()
			logger.Warn("no redis address configured, using in-process redis; data is lost on exit", "addr", addr)
		}
		c := redis.NewClient(&redis.Options{Addr: addr})
		a.closers = append(a.closers, func() { _ = c.Close() })
		if err := c.Ping(ctx).Err(); err != nil {
			return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", addr).Wrap(err)
		}
		client = c
		return c, nil
	}

	var users goAccount.UserStore
	switch strings.ToLower(cfg.Store.Driver) {
	case "memory":
		users = memory.New()
	case "redis":
		c, err := redisClient()
		if err != nil {
			return fail(err)
		}
		users = redisstore.New(c, cfg.Store.RedisPrefix)
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, pool.Close)
		users = postgres.New(pool)
	default:
		return fail(oops.Code("CONFIG_INVALID").Errorf("unknown store driver %q", cfg.Store.Driver))
	}

	var mailer goAccount.Mailer
	switch cfg.Mail.Driver {
	case "smtp":
		m, err := mail.NewSMTPMailer(cfg.Mail.SMTP)
		if err != nil {
			return fail(err)
		}
		mailer = m
	default:
		mailer = mail.NewLogMailer(logger)
	}

	b := goAccount.New().
		WithConfig(cfg.Account).
		WithUserStore(users).
		WithMailer(mailer).
		WithLogger(logger)

	if cfg.Account.Security.EnableLoginThrottle || cfg.Account.PasswordReset.EnableRequestThrottle {
		c, err := redisClient()
		if err != nil {
			return fail(err)
		}
		b.WithRedis(c)
	}
	if cfg.Account.Audit.Enabled {
		b.WithAuditSink(goAccount.NewSlogSink(logger.With("component", "audit")))
	}

	engine, err := b.Build()
	if err != nil {
		return fail(oops.Code("ENGINE_BUILD_FAILED").Wrap(err))
	}
	a.engine = engine
	return a, nil
}

func metricsHandler(engine *goAccount.Engine) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(engine),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func runServe(ctx context.Context, cfg *appConfig) error {
	logger, err := logging.Setup(logging.Options{
		Service: "goaccount",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, os.Stderr)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	slog.SetDefault(logger)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	servers := []*http.Server{{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(a.engine, cfg.Account, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Account.Metrics.Enabled && cfg.Server.MetricsAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           metricsHandler(a.engine),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Error("shutdown failed", "addr", srv.Addr, "error", serr)
		}
	}
	return err
}
