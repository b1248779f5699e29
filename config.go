package goAccount

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the immutable engine configuration. Build it from
// [DefaultConfig], override fields, and pass it to [Builder.WithConfig].
type Config struct {
	JWT           JWTConfig           `yaml:"jwt"`
	Refresh       RefreshConfig       `yaml:"refresh"`
	Password      PasswordConfig      `yaml:"password"`
	PasswordReset PasswordResetConfig `yaml:"password_reset"`
	Cookie        CookieConfig        `yaml:"cookie"`
	Audit         AuditConfig         `yaml:"audit"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Security      SecurityConfig      `yaml:"security"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token signing.
type JWTConfig struct {
	AccessTTL     time.Duration `yaml:"access_ttl"`
	SigningMethod string        `yaml:"signing_method"` // "hs256" (default) or "ed25519"
	PrivateKey    []byte        `yaml:"-"`
	PublicKey     []byte        `yaml:"-"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	Leeway        time.Duration `yaml:"leeway"`
	KeyID         string        `yaml:"key_id"`
}

// RefreshConfig controls the lifetime of the stored refresh token.
type RefreshConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and the minimum password length.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory"` // in KB
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
	MinLength   int    `yaml:"min_length"`
}

// PasswordResetConfig controls reset-token lifetime, the emailed link, and
// the optional request throttle.
type PasswordResetConfig struct {
	TTL                   time.Duration `yaml:"ttl"`
	LinkBaseURL           string        `yaml:"link_base_url"`
	Subject               string        `yaml:"subject"`
	EnableRequestThrottle bool          `yaml:"enable_request_throttle"`
	MaxRequests           int           `yaml:"max_requests"`
	RequestCooldown       time.Duration `yaml:"request_cooldown"`
}

// CookieConfig describes the refresh-token cookie written by the HTTP layer.
type CookieConfig struct {
	Name          string        `yaml:"name"`
	Path          string        `yaml:"path"`
	Domain        string        `yaml:"domain"`
	Secure        bool          `yaml:"secure"`
	SameSite      http.SameSite `yaml:"same_site"`
	ClearResidual time.Duration `yaml:"clear_residual"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds login throttling and session revocation policy.
// Throttles require a Redis client on the builder.
type SecurityConfig struct {
	EnableLoginThrottle           bool          `yaml:"enable_login_throttle"`
	EnableIPThrottle              bool          `yaml:"enable_ip_throttle"`
	MaxLoginAttempts              int           `yaml:"max_login_attempts"`
	LoginCooldownDuration         time.Duration `yaml:"login_cooldown"`
	RevokeRefreshOnPasswordChange bool          `yaml:"revoke_refresh_on_password_change"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Signing keys are empty
// and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "goaccount",
		},
		Refresh: RefreshConfig{
			TTL: 72 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   1,
		},
		PasswordReset: PasswordResetConfig{
			TTL:                   10 * time.Minute,
			LinkBaseURL:           "http://localhost:4000/api/users/reset-password/",
			Subject:               "Reset Password",
			EnableRequestThrottle: false,
			MaxRequests:           5,
			RequestCooldown:       15 * time.Minute,
		},
		Cookie: CookieConfig{
			Name:          "refreshToken",
			Path:          "/",
			Secure:        false,
			SameSite:      http.SameSiteLaxMode,
			ClearResidual: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:           false,
			EnableIPThrottle:              false,
			MaxLoginAttempts:              5,
			LoginCooldownDuration:         15 * time.Minute,
			RevokeRefreshOnPasswordChange: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 PrivateKey must be at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL <= c.JWT.AccessTTL {
		return errors.New("Refresh TTL must be greater than JWT AccessTTL")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Password Reset
	if c.PasswordReset.TTL <= 0 {
		return errors.New("PasswordReset TTL must be > 0")
	}
	if c.PasswordReset.TTL > 24*time.Hour {
		return errors.New("PasswordReset TTL must be <= 24h")
	}
	if strings.TrimSpace(c.PasswordReset.LinkBaseURL) == "" {
		return errors.New("PasswordReset LinkBaseURL is required")
	}
	if c.PasswordReset.EnableRequestThrottle {
		if c.PasswordReset.MaxRequests <= 0 {
			return errors.New("PasswordReset MaxRequests must be > 0 when throttle is enabled")
		}
		if c.PasswordReset.RequestCooldown <= 0 {
			return errors.New("PasswordReset RequestCooldown must be > 0 when throttle is enabled")
		}
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name is required")
	}
	if c.Cookie.ClearResidual < 0 {
		return errors.New("Cookie ClearResidual must be >= 0")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("EnableIPThrottle requires EnableLoginThrottle")
	}

	return nil
}

func (c *Config) needsRedis() bool {
	return c.Security.EnableLoginThrottle || c.PasswordReset.EnableRequestThrottle
}
