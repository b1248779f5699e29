package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Environment variables read after the config file.
const (
	envJWTSecret      = "GOACCOUNT_JWT_SECRET"
	envJWTPrivateFile = "GOACCOUNT_JWT_PRIVATE_KEY_FILE"
	envJWTPublicFile  = "GOACCOUNT_JWT_PUBLIC_KEY_FILE"
	envStore          = "GOACCOUNT_STORE"
	envDatabaseURL    = "DATABASE_URL"
	envRedisAddr      = "REDIS_ADDR"
	envSMTPPassword   = "SMTP_PASSWORD"
)

type serverConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type logConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

type storeConfig struct {
	// Driver is memory, redis or postgres.
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type mailConfig struct {
	// Driver is log or smtp.
	Driver string          `yaml:"driver"`
	SMTP   mail.SMTPConfig `yaml:"smtp"`
}

// appConfig is the whole process configuration.
type appConfig struct {
	Server  serverConfig     `yaml:"server"`
	Log     logConfig        `yaml:"log"`
	Store   storeConfig      `yaml:"store"`
	Mail    mailConfig       `yaml:"mail"`
	Account goAccount.Config `yaml:"account"`
}

func defaultAppConfig() *appConfig {
	return &appConfig{
		Server: serverConfig{
			Addr:        ":4000",
			MetricsAddr: "127.0.0.1:9100",
		},
		Log: logConfig{
			Format: "json",
			Level:  "info",
		},
		Store: storeConfig{
			Driver:      "memory",
			RedisPrefix: "ga",
		},
		Mail: mailConfig{
			Driver: "log",
			SMTP:   mail.SMTPConfig{Port: 587},
		},
		Account: goAccount.DefaultConfig(),
	}
}

// loadConfig layers the YAML file at path (optional), a .env file in the
// working directory (optional), and environment variables over the
// defaults.
func loadConfig(path string) (*appConfig, error) {
	cfg := defaultAppConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("CONFIG_ENV_FAILED").With("path", ".env").Wrap(err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *appConfig, lookup func(string) (string, bool)) error {
	if v, ok := lookup(envJWTSecret); ok && v != "" {
		cfg.Account.JWT.PrivateKey = []byte(v)
	}
	if v, ok := lookup(envJWTPrivateFile); ok && v != "" {
		key, err := os.ReadFile(v)
		if err != nil {
			return oops.Code("CONFIG_KEY_READ_FAILED").With("path", v).Wrap(err)
		}
		cfg.Account.JWT.PrivateKey = key
	}
	if v, ok := lookup(envJWTPublicFile); ok && v != "" {
		key, err := os.ReadFile(v)
		if err != nil {
			return oops.Code("CONFIG_KEY_READ_FAILED").With("path", v).Wrap(err)
		}
		cfg.Account.JWT.PublicKey = key
	}
	if v, ok := lookup(envStore); ok && v != "" {
		cfg.Store.Driver = v
	}
	if v, ok := lookup(envDatabaseURL); ok && v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v, ok := lookup(envRedisAddr); ok && v != "" {
		cfg.Store.RedisAddr = v
	}
	if v, ok := lookup(envSMTPPassword); ok && v != "" {
		cfg.Mail.SMTP.Password = v
	}
	return nil
}

// Validate checks the process-level settings. Engine settings are checked by
// the builder.
func (c *appConfig) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Store.Driver) {
	case "memory", "redis":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("postgres store requires %s or store.database_url", envDatabaseURL)
		}
	default:
		return fmt.Errorf("store driver must be memory, redis or postgres, got %q", c.Store.Driver)
	}
	switch c.Mail.Driver {
	case "log", "smtp":
	default:
		return fmt.Errorf("mail driver must be log or smtp, got %q", c.Mail.Driver)
	}
	return nil
}
