package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistav/site-api/internal/config"
)

const strongSecret = "3f1c2a9d8e7b6f5a4c3d2e1f0a9b8c7d"

func TestLoad_RequiresSessionSecret(t *testing.T) {
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoad_RejectsShortSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", strongSecret)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "./data", cfg.Data.Dir)
	assert.Equal(t, 5, cfg.Contact.RateLimit)
	assert.Equal(t, time.Hour, cfg.Contact.RateWindow)
	assert.Equal(t, 3, cfg.Contact.MinFillSeconds)
	assert.Equal(t, "telegram", cfg.Notify.Channel)
}

func TestLoad_RejectsBadTOTPKeyLength(t *testing.T) {
	t.Setenv("SESSION_SECRET", strongSecret)
	t.Setenv("TOTP_ENCRYPTION_KEY", "tooshort")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOTP_ENCRYPTION_KEY")
}

func TestLoad_EmailChannelNeedsAddresses(t *testing.T) {
	t.Setenv("SESSION_SECRET", strongSecret)
	t.Setenv("NOTIFY_CHANNEL", "email")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("NOTIFY_EMAIL_FROM", "web@example.com")
	t.Setenv("NOTIFY_EMAIL_TO", "office@example.com")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "email", cfg.Notify.Channel)
}

func TestLoad_ParsesLists(t *testing.T) {
	t.Setenv("SESSION_SECRET", strongSecret)
	t.Setenv("ALLOWED_ORIGINS", "https://example.com, https://www.example.com")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com", "https://www.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
}

func TestLoad_RejectsWeakProductionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "password-password-password-pass!")
	t.Setenv("ENV", "production")

	_, err := config.Load()
	require.Error(t, err)
}
