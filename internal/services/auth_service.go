package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/auth"
	"github.com/vistav/site-api/internal/metrics"
	"github.com/vistav/site-api/internal/models"
)

// CredentialStore defines the interface for admin credential operations
type CredentialStore interface {
	Get() (*models.Credential, error)
	Verify(username, password string) (*models.Credential, error)
	ChangePassword(currentPassword, newPassword string) error
	SetTOTPSecret(encryptedSecret, nonce string) error
	ClearTOTPSecret() error
}

// AuditTrail records security relevant events in the durable access log
type AuditTrail interface {
	Record(action, identifier, details, userAgent string) error
}

// AuthService handles admin authentication business logic
type AuthService struct {
	creds     CredentialStore
	rateGuard *RateLimitService
	sessions  *auth.SessionManager
	totp      *auth.TOTPManager // nil when no encryption key is configured
	audit     AuditTrail
	logger    *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(creds CredentialStore, rateGuard *RateLimitService, sessions *auth.SessionManager, totp *auth.TOTPManager, audit AuditTrail, logger *slog.Logger) *AuthService {
	return &AuthService{
		creds:     creds,
		rateGuard: rateGuard,
		sessions:  sessions,
		totp:      totp,
		audit:     audit,
		logger:    logger,
	}
}

// LoginResult carries what the login handler returns to the client
type LoginResult struct {
	CSRFToken          string
	MustChangePassword bool
}

// Login runs the full guard pipeline for an admin login attempt: lockout
// check, credential verification, optional second factor, then session
// promotion. Every outcome is written to the access log under the caller's
// identifier.
func (s *AuthService) Login(sess *auth.Session, username, password, otpCode, identifier, userAgent string) (*LoginResult, error) {
	retry, err := s.rateGuard.Check(identifier)
	if err != nil {
		metrics.LockoutsTotal.Inc()
		s.recordAudit(accesslog.ActionRateLimited, identifier,
			fmt.Sprintf("locked out for another %ds", int(retry.Seconds())), userAgent)
		return nil, err
	}

	cred, err := s.creds.Verify(username, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			_ = s.rateGuard.RecordAttempt(identifier, false)
			s.recordAudit(accesslog.ActionLoginFailed, identifier,
				fmt.Sprintf("username: %s", username), userAgent)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to verify credentials", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if cred.TOTPEnabled() {
		if s.totp == nil {
			s.logger.Error("credential has a TOTP secret but no TOTP manager is configured")
			return nil, models.ErrInternalServer
		}
		if otpCode == "" {
			return nil, models.ErrTOTPRequired
		}
		ok, err := s.totp.ValidateCode(cred.TOTPSecret, cred.TOTPNonce, otpCode)
		if err != nil {
			s.logger.Error("failed to validate one-time code", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if !ok {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_totp").Inc()
			_ = s.rateGuard.RecordAttempt(identifier, false)
			s.recordAudit(accesslog.ActionLoginFailed, identifier,
				fmt.Sprintf("invalid one-time code for username: %s", username), userAgent)
			return nil, models.ErrTOTPInvalid
		}
	}

	csrfToken, err := s.sessions.Login(sess, username)
	if err != nil {
		s.logger.Error("failed to promote session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	_ = s.rateGuard.RecordAttempt(identifier, true)
	s.recordAudit(accesslog.ActionLoginSuccess, identifier,
		fmt.Sprintf("username: %s", username), userAgent)
	s.logger.Info("admin logged in", slog.String("username", username))

	return &LoginResult{
		CSRFToken:          csrfToken,
		MustChangePassword: cred.MustChangePassword,
	}, nil
}

// Logout tears down the session and records the event.
func (s *AuthService) Logout(sess *auth.Session, identifier, userAgent string) {
	if sess != nil && sess.LoggedIn {
		s.recordAudit(accesslog.ActionLogout, identifier,
			fmt.Sprintf("username: %s", sess.Username), userAgent)
	}
	s.sessions.Destroy(sess)
}

// ChangePassword rotates the admin password. Validation failures surface as
// pkg/auth.PasswordValidationError, a wrong current password as
// ErrInvalidCredentials.
func (s *AuthService) ChangePassword(currentPassword, newPassword, identifier, userAgent string) error {
	if err := s.creds.ChangePassword(currentPassword, newPassword); err != nil {
		return err
	}
	s.recordAudit(accesslog.ActionPasswordChange, identifier, "", userAgent)
	s.logger.Info("admin password changed")
	return nil
}

// RequireRotatedPassword gates privileged operations until the bootstrap
// password has been replaced.
func (s *AuthService) RequireRotatedPassword() error {
	cred, err := s.creds.Get()
	if err != nil {
		s.logger.Error("failed to load credential record", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if cred.MustChangePassword {
		return models.ErrPasswordRotationRequired
	}
	return nil
}

// EnrollTOTP generates and stores a new second factor secret and returns the
// provisioning material. An existing enrollment is replaced.
func (s *AuthService) EnrollTOTP(username, identifier, userAgent string) (*auth.Enrollment, error) {
	if s.totp == nil {
		return nil, fmt.Errorf("%w: two-factor authentication is not configured", models.ErrBadRequest)
	}
	enrollment, err := s.totp.GenerateEnrollment(username)
	if err != nil {
		s.logger.Error("failed to generate TOTP enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if err := s.creds.SetTOTPSecret(enrollment.EncryptedSecret, enrollment.Nonce); err != nil {
		s.logger.Error("failed to store TOTP secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	s.recordAudit(accesslog.ActionConfigUpdated, identifier, "TOTP enrolled", userAgent)
	return enrollment, nil
}

// DisableTOTP removes the second factor after re-verifying the password.
func (s *AuthService) DisableTOTP(password, identifier, userAgent string) error {
	cred, err := s.creds.Get()
	if err != nil {
		s.logger.Error("failed to load credential record", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if _, err := s.creds.Verify(cred.Username, password); err != nil {
		return err
	}
	if err := s.creds.ClearTOTPSecret(); err != nil {
		s.logger.Error("failed to clear TOTP secret", slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.recordAudit(accesslog.ActionConfigUpdated, identifier, "TOTP disabled", userAgent)
	return nil
}

func (s *AuthService) recordAudit(action, identifier, details, userAgent string) {
	if err := s.audit.Record(action, identifier, details, userAgent); err != nil {
		s.logger.Error("failed to write access log entry",
			slog.String("action", action),
			slog.Any("error", err))
	}
}
