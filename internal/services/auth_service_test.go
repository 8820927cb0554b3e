package services_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/auth"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/repositories"
	"github.com/vistav/site-api/internal/services"
	"github.com/vistav/site-api/internal/storage"
)

const (
	testIdentifier = "203.0.113.5"
	testUserAgent  = "Mozilla/5.0 (test)"
)

type authStack struct {
	svc      *services.AuthService
	sessions *auth.SessionManager
	audit    *accesslog.AccessLog
	clock    *testClock
}

func newAuthStack(t *testing.T) *authStack {
	t.Helper()
	dir := t.TempDir()
	clock := newTestClock()

	credStore, err := storage.NewDocumentStore(filepath.Join(dir, "admin_credentials.json"))
	require.NoError(t, err)
	attemptStore, err := storage.NewDocumentStore(filepath.Join(dir, "login_attempts.json"))
	require.NoError(t, err)
	configStore, err := storage.NewDocumentStore(filepath.Join(dir, "security_config.json"))
	require.NoError(t, err)

	creds := repositories.NewCredentialRepository(credStore)
	ledger := repositories.NewAttemptRepository(attemptStore)
	ledger.SetNowFunc(clock.Now)
	policy := repositories.NewSecurityConfigRepository(configStore)

	rateGuard := services.NewRateLimitService(ledger, policy, testLogger())
	rateGuard.SetNowFunc(clock.Now)

	sessions, err := auth.NewSessionManager([]byte("0123456789abcdef0123456789abcdef"), func() time.Duration { return time.Hour })
	require.NoError(t, err)
	sessions.SetNowFunc(clock.Now)

	totpMgr, err := auth.NewTOTPManager([]byte("fedcba9876543210fedcba9876543210"), "vistav-admin")
	require.NoError(t, err)

	audit, err := accesslog.New(filepath.Join(dir, "access_log.txt"))
	require.NoError(t, err)
	audit.SetNowFunc(clock.Now)

	svc := services.NewAuthService(creds, rateGuard, sessions, totpMgr, audit, testLogger())
	return &authStack{svc: svc, sessions: sessions, audit: audit, clock: clock}
}

func (st *authStack) newSession(t *testing.T) *auth.Session {
	t.Helper()
	sess, _, err := st.sessions.Create()
	require.NoError(t, err)
	return sess
}

func auditContents(t *testing.T, audit *accesslog.AccessLog) string {
	t.Helper()
	data, err := os.ReadFile(audit.Path())
	require.NoError(t, err)
	return string(data)
}

func TestLogin_BootstrapCredential(t *testing.T) {
	st := newAuthStack(t)
	sess := st.newSession(t)

	result, err := st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	require.NoError(t, err)
	assert.NotEmpty(t, result.CSRFToken)
	assert.True(t, result.MustChangePassword, "bootstrap password must be flagged for rotation")
	assert.True(t, st.sessions.Authenticated(sess))

	log := auditContents(t, st.audit)
	assert.Contains(t, log, "LOGIN_SUCCESS")
	assert.Contains(t, log, testIdentifier)
}

func TestLogin_WrongPassword(t *testing.T) {
	st := newAuthStack(t)
	sess := st.newSession(t)

	_, err := st.svc.Login(sess, "admin", "nope", "", testIdentifier, testUserAgent)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.False(t, st.sessions.Authenticated(sess))
	assert.Contains(t, auditContents(t, st.audit), "LOGIN_FAILED")
}

func TestLogin_UnknownUsernameLooksTheSame(t *testing.T) {
	st := newAuthStack(t)
	sess := st.newSession(t)

	_, err := st.svc.Login(sess, "root", "admin123", "", testIdentifier, testUserAgent)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLogin_LockedOutAfterRepeatedFailures(t *testing.T) {
	st := newAuthStack(t)

	for i := 0; i < 5; i++ {
		sess := st.newSession(t)
		_, err := st.svc.Login(sess, "admin", "nope", "", testIdentifier, testUserAgent)
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
		st.clock.Advance(time.Second)
	}

	// Even the correct password is rejected during the lockout window
	sess := st.newSession(t)
	_, err := st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	require.ErrorIs(t, err, models.ErrRateLimited)
	assert.Contains(t, auditContents(t, st.audit), "RATE_LIMITED")

	// Another caller is unaffected
	other := st.newSession(t)
	_, err = st.svc.Login(other, "admin", "admin123", "", "198.51.100.1", testUserAgent)
	assert.NoError(t, err)

	// And the original caller recovers once the window expires
	st.clock.Advance(15 * time.Minute)
	sess = st.newSession(t)
	_, err = st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	assert.NoError(t, err)
}

func TestLogin_SuccessResetsFailureCount(t *testing.T) {
	st := newAuthStack(t)

	for i := 0; i < 4; i++ {
		sess := st.newSession(t)
		_, err := st.svc.Login(sess, "admin", "nope", "", testIdentifier, testUserAgent)
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	sess := st.newSession(t)
	_, err := st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	require.NoError(t, err)

	// Four more failures fit under the threshold again
	for i := 0; i < 4; i++ {
		sess := st.newSession(t)
		_, err := st.svc.Login(sess, "admin", "nope", "", testIdentifier, testUserAgent)
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	sess = st.newSession(t)
	_, err = st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	assert.NoError(t, err)
}

func TestLogin_TOTPChallenge(t *testing.T) {
	st := newAuthStack(t)

	enrollment, err := st.svc.EnrollTOTP("admin", testIdentifier, testUserAgent)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.NotEmpty(t, enrollment.QRDataURL)

	sess := st.newSession(t)
	_, err = st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	assert.ErrorIs(t, err, models.ErrTOTPRequired)

	sess = st.newSession(t)
	_, err = st.svc.Login(sess, "admin", "admin123", "000000", testIdentifier, testUserAgent)
	assert.ErrorIs(t, err, models.ErrTOTPInvalid)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	sess = st.newSession(t)
	result, err := st.svc.Login(sess, "admin", "admin123", code, testIdentifier, testUserAgent)
	require.NoError(t, err)
	assert.NotEmpty(t, result.CSRFToken)
}

func TestDisableTOTP(t *testing.T) {
	st := newAuthStack(t)

	_, err := st.svc.EnrollTOTP("admin", testIdentifier, testUserAgent)
	require.NoError(t, err)

	assert.ErrorIs(t, st.svc.DisableTOTP("nope", testIdentifier, testUserAgent), models.ErrInvalidCredentials)
	require.NoError(t, st.svc.DisableTOTP("admin123", testIdentifier, testUserAgent))

	sess := st.newSession(t)
	_, err = st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	st := newAuthStack(t)

	assert.ErrorIs(t, st.svc.RequireRotatedPassword(), models.ErrPasswordRotationRequired)

	err := st.svc.ChangePassword("wrong", "Spr1ngTime2026", testIdentifier, testUserAgent)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	require.NoError(t, st.svc.ChangePassword("admin123", "Spr1ngTime2026", testIdentifier, testUserAgent))
	assert.NoError(t, st.svc.RequireRotatedPassword())
	assert.Contains(t, auditContents(t, st.audit), "PASSWORD_CHANGED")

	sess := st.newSession(t)
	result, err := st.svc.Login(sess, "admin", "Spr1ngTime2026", "", testIdentifier, testUserAgent)
	require.NoError(t, err)
	assert.False(t, result.MustChangePassword)
}

func TestLogout(t *testing.T) {
	st := newAuthStack(t)
	sess := st.newSession(t)

	_, err := st.svc.Login(sess, "admin", "admin123", "", testIdentifier, testUserAgent)
	require.NoError(t, err)

	st.svc.Logout(sess, testIdentifier, testUserAgent)
	assert.False(t, st.sessions.Authenticated(sess))
	assert.Contains(t, auditContents(t, st.audit), "LOGOUT")
}
