package services_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/repositories"
	"github.com/vistav/site-api/internal/services"
	"github.com/vistav/site-api/internal/storage"
)

func newSecurityService(t *testing.T) (*services.SecurityService, *accesslog.AccessLog) {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewDocumentStore(filepath.Join(dir, "security_config.json"))
	require.NoError(t, err)
	logs, err := accesslog.New(filepath.Join(dir, "access_log.txt"))
	require.NoError(t, err)

	return services.NewSecurityService(repositories.NewSecurityConfigRepository(store), logs, logs, testLogger()), logs
}

func TestSecurityConfig_DefaultsOnFirstRead(t *testing.T) {
	svc, _ := newSecurityService(t)

	cfg, err := svc.Config()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxLoginAttempts)
	assert.Equal(t, 900, cfg.LockoutDurationS)
	assert.Equal(t, 3600, cfg.SessionTimeoutS)
	assert.False(t, cfg.EnableIPWhitelist)
	assert.True(t, cfg.EnableRateLimit)
}

func TestSecurityConfig_UpdatePersists(t *testing.T) {
	svc, _ := newSecurityService(t)

	update := models.DefaultSecurityConfig()
	update.MaxLoginAttempts = 3
	update.LockoutDurationS = 1800

	cfg, err := svc.UpdateConfig(update, testIdentifier, testUserAgent)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxLoginAttempts)

	cfg, err = svc.Config()
	require.NoError(t, err)
	assert.Equal(t, 1800, cfg.LockoutDurationS)
}

func TestSecurityConfig_UpdateValidation(t *testing.T) {
	svc, _ := newSecurityService(t)

	update := models.DefaultSecurityConfig()
	update.MaxLoginAttempts = 0
	update.EnableIPWhitelist = true
	update.AllowedIPs = []string{"not-an-ip"}

	_, err := svc.UpdateConfig(update, testIdentifier, testUserAgent)
	require.ErrorIs(t, err, models.ErrBadRequest)

	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "max_login_attempts")
	assert.Contains(t, verr.Fields, "allowed_ips.0")
}

func TestSecurityConfig_WhitelistAcceptsCIDR(t *testing.T) {
	svc, _ := newSecurityService(t)

	update := models.DefaultSecurityConfig()
	update.EnableIPWhitelist = true
	update.AllowedIPs = []string{"203.0.113.5", "10.0.0.0/8"}

	_, err := svc.UpdateConfig(update, testIdentifier, testUserAgent)
	assert.NoError(t, err)
}

func TestSecurityLogs_RecentAndClear(t *testing.T) {
	svc, logs := newSecurityService(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, logs.Record(accesslog.ActionLoginFailed, testIdentifier, "username: admin", testUserAgent))
	}

	entries, err := svc.RecentLogs(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, svc.ClearLogs(testIdentifier, testUserAgent))

	// The clear event itself is the first line of the fresh log
	entries, err = svc.RecentLogs(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, accesslog.ActionLogsCleared, entries[0].Action)
}

func TestSecurityLogs_Export(t *testing.T) {
	svc, logs := newSecurityService(t)

	require.NoError(t, logs.Record(accesslog.ActionLoginSuccess, testIdentifier, "username: admin", testUserAgent))

	var buf bytes.Buffer
	require.NoError(t, svc.ExportLogs(&buf))
	assert.Contains(t, buf.String(), "LOGIN_SUCCESS")
}
