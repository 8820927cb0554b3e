package models

import "time"

// SecurityConfig is the tunable guard policy, persisted as one JSON document
// so the dashboard can edit it at runtime.
type SecurityConfig struct {
	AllowedIPs        []string `json:"allowed_ips"`
	MaxLoginAttempts  int      `json:"max_login_attempts"`
	LockoutDurationS  int      `json:"lockout_duration"`
	SessionTimeoutS   int      `json:"session_timeout"`
	EnableIPWhitelist bool     `json:"enable_ip_whitelist"`
	EnableRateLimit   bool     `json:"enable_rate_limiting"`
	EnableLogging     bool     `json:"enable_logging"`
}

// DefaultSecurityConfig returns the policy written on first use.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedIPs:        []string{"127.0.0.1", "::1"},
		MaxLoginAttempts:  5,
		LockoutDurationS:  900,
		SessionTimeoutS:   3600,
		EnableIPWhitelist: false,
		EnableRateLimit:   true,
		EnableLogging:     true,
	}
}

// LockoutDuration returns the lockout window as a time.Duration.
func (c SecurityConfig) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationS) * time.Second
}

// SessionTimeout returns the idle-session limit as a time.Duration.
func (c SecurityConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutS) * time.Second
}
