package services_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/repositories"
	"github.com/vistav/site-api/internal/services"
	"github.com/vistav/site-api/internal/storage"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRateGuard(t *testing.T) (*services.RateLimitService, *repositories.SecurityConfigRepository, *testClock) {
	t.Helper()
	dir := t.TempDir()

	attemptStore, err := storage.NewDocumentStore(filepath.Join(dir, "login_attempts.json"))
	require.NoError(t, err)
	configStore, err := storage.NewDocumentStore(filepath.Join(dir, "security_config.json"))
	require.NoError(t, err)

	ledger := repositories.NewAttemptRepository(attemptStore)
	policy := repositories.NewSecurityConfigRepository(configStore)

	clock := newTestClock()
	ledger.SetNowFunc(clock.Now)

	svc := services.NewRateLimitService(ledger, policy, testLogger())
	svc.SetNowFunc(clock.Now)
	return svc, policy, clock
}

func TestRateLimitCheck_AllowsBelowThreshold(t *testing.T) {
	svc, _, _ := newRateGuard(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
	}

	retry, err := svc.Check("203.0.113.5")
	assert.NoError(t, err)
	assert.Zero(t, retry)
}

func TestRateLimitCheck_LocksAtThreshold(t *testing.T) {
	svc, _, clock := newRateGuard(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
		clock.Advance(time.Second)
	}

	retry, err := svc.Check("203.0.113.5")
	require.ErrorIs(t, err, models.ErrRateLimited)
	// Last failure was one second ago against a 900s lockout
	assert.Equal(t, 899*time.Second, retry)

	var limited *models.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, retry, limited.RetryAfter)
}

func TestRateLimitCheck_ExpiredWindowResetsLedger(t *testing.T) {
	svc, _, clock := newRateGuard(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
	}
	clock.Advance(15*time.Minute + time.Second)

	retry, err := svc.Check("203.0.113.5")
	assert.NoError(t, err)
	assert.Zero(t, retry)

	// The reset starts the identifier from a clean count, so the next
	// failure is number one rather than number six.
	require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
	_, err = svc.Check("203.0.113.5")
	assert.NoError(t, err)
}

func TestRateLimitCheck_SuccessClearsFailures(t *testing.T) {
	svc, _, _ := newRateGuard(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
	}
	require.NoError(t, svc.RecordAttempt("203.0.113.5", true))
	for i := 0; i < 4; i++ {
		require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
	}

	_, err := svc.Check("203.0.113.5")
	assert.NoError(t, err)
}

func TestRateLimitCheck_DisabledPolicyAllowsEverything(t *testing.T) {
	svc, policy, _ := newRateGuard(t)

	_, err := policy.Update(func(cfg *models.SecurityConfig) error {
		cfg.EnableRateLimit = false
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
	}

	retry, err := svc.Check("203.0.113.5")
	assert.NoError(t, err)
	assert.Zero(t, retry)
}

func TestRateLimitCheck_IdentifiersAreIndependent(t *testing.T) {
	svc, _, _ := newRateGuard(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordAttempt("203.0.113.5", false))
	}

	_, err := svc.Check("198.51.100.1")
	assert.NoError(t, err)
	_, err = svc.Check("203.0.113.5")
	assert.ErrorIs(t, err, models.ErrRateLimited)
}
