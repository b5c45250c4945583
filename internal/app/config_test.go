package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "rp-exotics-platform", cfg.Auth.JWT.Issuer)
	require.Equal(t, 24*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 720*time.Hour, cfg.Auth.JWT.RememberTTL)
	require.Equal(t, 5, cfg.Auth.Local.LockoutThreshold)
	require.Equal(t, 15*time.Minute, cfg.Auth.Local.LockoutDuration)
	require.False(t, cfg.Workflow.EnforceStageOrder)
	require.Equal(t, "https://vpic.nhtsa.dot.gov/api", cfg.VIN.BaseURL)
	require.Equal(t, 10*time.Second, cfg.VIN.Timeout)
	require.Equal(t, 90, cfg.Audit.RetentionDays)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RPEXOTICS_SERVER_PORT", "9000")
	t.Setenv("RPEXOTICS_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("RPEXOTICS_WORKFLOW_ENFORCE_STAGE_ORDER", "true")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
	require.True(t, cfg.Workflow.EnforceStageOrder)
}

func TestJWTServiceConfigConversion(t *testing.T) {
	auth := AuthConfig{
		JWT: JWTSettings{
			Secret:      "s",
			Issuer:      "iss",
			TTL:         time.Hour,
			RememberTTL: 48 * time.Hour,
		},
	}

	cfg := auth.JWTServiceConfig()
	require.Equal(t, "s", cfg.Secret)
	require.Equal(t, "iss", cfg.Issuer)
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 48*time.Hour, cfg.RememberTokenTTL)
}
