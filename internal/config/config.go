package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	ListenAddr  string
	DatabaseURL string

	// Env is either "development" or "production". The production
	// guards below only apply when it is "production".
	Env string

	// MasterSecret is the long-lived secret that per-operation
	// encryption keys are derived from. Required in production.
	MasterSecret string

	// TokenSecret signs admin identity tokens. Required in production.
	TokenSecret string

	// DevBypass skips admin authentication entirely. Load refuses to
	// produce a production config with this set, so a deployed binary
	// cannot accidentally run with the bypass enabled.
	DevBypass bool

	AdminUser     string
	AdminPassword string

	// RateLimit is the per-client request ceiling within RateWindow.
	RateLimit  int
	RateWindow time.Duration
}

// Load reads configuration from environment variables and applies the
// production guards: the master and token secrets must be set and the
// dev bypass must be off, otherwise an error is returned and the
// process must not start. In development, missing secrets fall back to
// clearly marked placeholders.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:    getenv("APP_LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("APP_DATABASE_URL"),
		Env:           getenv("APP_ENV", EnvDevelopment),
		MasterSecret:  os.Getenv("APP_MASTER_SECRET"),
		TokenSecret:   os.Getenv("APP_TOKEN_SECRET"),
		DevBypass:     os.Getenv("APP_DEV_BYPASS") == "true",
		AdminUser:     getenv("APP_ADMIN_USER", "admin"),
		AdminPassword: getenv("APP_ADMIN_PASSWORD", "changeme"),
		RateLimit:     100,
		RateWindow:    time.Minute,
	}

	if v := os.Getenv("APP_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit = n
		}
	}
	if v := os.Getenv("APP_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateWindow = time.Duration(n) * time.Second
		}
	}

	if cfg.IsProduction() {
		if cfg.MasterSecret == "" {
			return nil, errors.New("APP_MASTER_SECRET is required in production")
		}
		if cfg.TokenSecret == "" {
			return nil, errors.New("APP_TOKEN_SECRET is required in production")
		}
		if cfg.DevBypass {
			return nil, errors.New("APP_DEV_BYPASS cannot be enabled in production")
		}
	} else {
		if cfg.MasterSecret == "" {
			cfg.MasterSecret = "development-master-secret-not-for-production"
		}
		if cfg.TokenSecret == "" {
			cfg.TokenSecret = "development-token-secret-not-for-production"
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
