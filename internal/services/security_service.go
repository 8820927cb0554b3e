package services

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/models"
)

// SecurityPolicyRepository persists the guard policy document
type SecurityPolicyRepository interface {
	Get() (models.SecurityConfig, error)
	Update(fn func(cfg *models.SecurityConfig) error) (models.SecurityConfig, error)
}

const (
	defaultLogLines = 100
	maxLogLines     = 1000
)

// SecurityService backs the admin security dashboard: guard policy edits and
// access log inspection.
type SecurityService struct {
	policy SecurityPolicyRepository
	logs   *accesslog.AccessLog
	audit  AuditTrail
	logger *slog.Logger
}

// NewSecurityService creates a new SecurityService. Reads and truncation go
// straight to logs; new entries go through audit so the logging toggle holds.
func NewSecurityService(policy SecurityPolicyRepository, logs *accesslog.AccessLog, audit AuditTrail, logger *slog.Logger) *SecurityService {
	return &SecurityService{policy: policy, logs: logs, audit: audit, logger: logger}
}

// Config returns the current guard policy.
func (s *SecurityService) Config() (models.SecurityConfig, error) {
	return s.policy.Get()
}

// UpdateConfig validates and persists a new guard policy.
func (s *SecurityService) UpdateConfig(update models.SecurityConfig, identifier, userAgent string) (models.SecurityConfig, error) {
	if err := validateSecurityConfig(update); err != nil {
		return models.SecurityConfig{}, err
	}

	cfg, err := s.policy.Update(func(cfg *models.SecurityConfig) error {
		*cfg = update
		return nil
	})
	if err != nil {
		s.logger.Error("failed to persist security config", slog.Any("error", err))
		return models.SecurityConfig{}, models.ErrInternalServer
	}

	s.recordAudit(accesslog.ActionConfigUpdated, identifier,
		fmt.Sprintf("max_attempts: %d, lockout: %ds, whitelist: %t",
			cfg.MaxLoginAttempts, cfg.LockoutDurationS, cfg.EnableIPWhitelist), userAgent)
	s.logger.Info("security config updated")
	return cfg, nil
}

// RecentLogs returns the newest n access log entries, newest first.
func (s *SecurityService) RecentLogs(n int) ([]accesslog.Entry, error) {
	if n <= 0 {
		n = defaultLogLines
	}
	if n > maxLogLines {
		n = maxLogLines
	}
	return s.logs.ReadRecent(n)
}

// ClearLogs truncates the access log. The clearing itself is recorded, so
// the fresh log starts with who emptied it.
func (s *SecurityService) ClearLogs(identifier, userAgent string) error {
	if err := s.logs.Clear(); err != nil {
		s.logger.Error("failed to clear access log", slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.recordAudit(accesslog.ActionLogsCleared, identifier, "", userAgent)
	return nil
}

// ExportLogs streams the raw access log.
func (s *SecurityService) ExportLogs(w io.Writer) error {
	return s.logs.Export(w)
}

func validateSecurityConfig(cfg models.SecurityConfig) error {
	fields := make(map[string]string)

	if cfg.MaxLoginAttempts < 1 || cfg.MaxLoginAttempts > 100 {
		fields["max_login_attempts"] = "must be between 1 and 100"
	}
	if cfg.LockoutDurationS < 60 || cfg.LockoutDurationS > 86400 {
		fields["lockout_duration"] = "must be between 60 and 86400 seconds"
	}
	if cfg.SessionTimeoutS < 300 || cfg.SessionTimeoutS > 86400 {
		fields["session_timeout"] = "must be between 300 and 86400 seconds"
	}
	if cfg.EnableIPWhitelist && len(cfg.AllowedIPs) == 0 {
		fields["allowed_ips"] = "whitelist mode needs at least one address"
	}
	for i, entry := range cfg.AllowedIPs {
		if !validAddressOrCIDR(entry) {
			fields[fmt.Sprintf("allowed_ips.%d", i)] = fmt.Sprintf("invalid address %q", entry)
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validAddressOrCIDR(entry string) bool {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return false
	}
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}

func (s *SecurityService) recordAudit(action, identifier, details, userAgent string) {
	if err := s.audit.Record(action, identifier, details, userAgent); err != nil {
		s.logger.Error("failed to write access log entry",
			slog.String("action", action),
			slog.Any("error", err))
	}
}
