package services

import (
	"log/slog"
	"time"

	"github.com/vistav/site-api/internal/models"
)

// AttemptLedger defines the interface for the persisted login attempt ledger
type AttemptLedger interface {
	Record(identifier string, success bool) error
	Get(identifier string) (models.LoginAttempt, bool, error)
	Reset(identifier string) error
}

// SecurityPolicyProvider supplies the current guard policy
type SecurityPolicyProvider interface {
	Get() (models.SecurityConfig, error)
}

// RateLimitService implements the login lockout state machine. An identifier
// accumulates failed attempts; once the count reaches the configured
// threshold, further checks are rejected until the lockout window has passed
// since the last failure. A check after the window expires resets the ledger
// entry so the identifier starts clean.
type RateLimitService struct {
	ledger AttemptLedger
	policy SecurityPolicyProvider
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(ledger AttemptLedger, policy SecurityPolicyProvider, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		ledger: ledger,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Check reports whether the identifier may attempt a login right now.
// When locked out it returns the remaining lockout as RetryAfter on a
// *models.RateLimitedError. Storage errors fail open so a corrupt ledger
// cannot lock out legitimate users.
func (s *RateLimitService) Check(identifier string) (time.Duration, error) {
	cfg, err := s.policy.Get()
	if err != nil {
		s.logger.Error("failed to load security policy, allowing attempt", slog.Any("error", err))
		return 0, nil
	}
	if !cfg.EnableRateLimit {
		return 0, nil
	}

	entry, ok, err := s.ledger.Get(identifier)
	if err != nil {
		s.logger.Error("failed to read attempt ledger, allowing attempt", slog.Any("error", err))
		return 0, nil
	}
	if !ok || entry.Count < cfg.MaxLoginAttempts {
		return 0, nil
	}

	elapsed := s.now().Sub(entry.LastAttemptTime())
	lockout := cfg.LockoutDuration()
	if elapsed >= lockout {
		if err := s.ledger.Reset(identifier); err != nil {
			s.logger.Error("failed to reset expired lockout", slog.Any("error", err))
		}
		return 0, nil
	}

	remaining := lockout - elapsed
	s.logger.Warn("login attempt rejected by lockout",
		slog.String("identifier", identifier),
		slog.Int("failed_attempts", entry.Count),
		slog.Duration("retry_after", remaining))
	return remaining, &models.RateLimitedError{RetryAfter: remaining}
}

// RecordAttempt records the outcome of a login attempt. A success wipes the
// identifier's ledger entry, a failure increments it.
func (s *RateLimitService) RecordAttempt(identifier string, success bool) error {
	if err := s.ledger.Record(identifier, success); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.Bool("success", success),
			slog.Any("error", err))
		return err
	}
	return nil
}

// SetNowFunc overrides the clock, for tests.
func (s *RateLimitService) SetNowFunc(now func() time.Time) {
	s.now = now
}
