package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_LISTEN_ADDR", "APP_DATABASE_URL", "APP_ENV",
		"APP_MASTER_SECRET", "APP_TOKEN_SECRET", "APP_DEV_BYPASS",
		"APP_ADMIN_USER", "APP_ADMIN_PASSWORD",
		"APP_RATE_LIMIT", "APP_RATE_WINDOW_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)

	// Development fills missing secrets with obvious placeholders.
	assert.Contains(t, cfg.MasterSecret, "not-for-production")
	assert.Contains(t, cfg.TokenSecret, "not-for-production")
}

func TestLoadProductionRequiresMasterSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("APP_TOKEN_SECRET", "real-token-secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProductionRequiresTokenSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("APP_MASTER_SECRET", "real-master-secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProductionRejectsDevBypass(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("APP_MASTER_SECRET", "real-master-secret")
	t.Setenv("APP_TOKEN_SECRET", "real-token-secret")
	t.Setenv("APP_DEV_BYPASS", "true")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadProductionWithSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("APP_MASTER_SECRET", "real-master-secret")
	t.Setenv("APP_TOKEN_SECRET", "real-token-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "real-master-secret", cfg.MasterSecret)
	assert.False(t, cfg.DevBypass)
}

func TestLoadRateOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_RATE_LIMIT", "25")
	t.Setenv("APP_RATE_WINDOW_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.RateWindow)
}

func TestLoadIgnoresInvalidRateOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_RATE_LIMIT", "zero")
	t.Setenv("APP_RATE_WINDOW_SECONDS", "-10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
}
