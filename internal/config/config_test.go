package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PROVIDER_CLIENT_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 24*60, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, 30*time.Second, cfg.Relay.PingInterval)
	assert.False(t, cfg.Provider.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RELAY_PING_INTERVAL", "5s")
	t.Setenv("APP_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PROVIDER_CLIENT_ID", "id")
	t.Setenv("PROVIDER_CLIENT_SECRET", "secret")
	t.Setenv("PROVIDER_ACCOUNT_ID", "acct")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Relay.PingInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
	assert.True(t, cfg.Provider.Enabled())
	assert.Equal(t, 3, cfg.Outbox.MaxAttempts)
}

func TestValidateRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RELAY_PING_INTERVAL", "soon")
	assert.Equal(t, 30*time.Second, getEnvAsDuration("RELAY_PING_INTERVAL", 30*time.Second))
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 2*time.Second, AppConfig{RequestTimeoutSeconds: 2}.RequestTimeout())
}
