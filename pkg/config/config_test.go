package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.Auth.ResolveTimeout)
	assert.Equal(t, "/signin", cfg.Auth.SignInPath)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CHAMBERS_PORT", "3000")
	t.Setenv("CHAMBERS_SESSION_TTL", "2h")
	t.Setenv("CHAMBERS_AUDIT_ENABLED", "false")
	t.Setenv("CHAMBERS_TOKEN_CACHE_SIZE", "128")
	t.Setenv("CHAMBERS_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, 128, cfg.Auth.TokenCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("CHAMBERS_SESSION_TTL", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
}

func TestValidate_PortClash(t *testing.T) {
	t.Setenv("CHAMBERS_PORT", "9090")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate_AuditRetention(t *testing.T) {
	t.Setenv("CHAMBERS_AUDIT_RETENTION_DAYS", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}
