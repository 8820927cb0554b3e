package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Session SessionConfig
	Contact ContactConfig
	Notify  NotifyConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

type DataConfig struct {
	// Dir holds every flat-file document: credentials, attempt ledger,
	// security config, price lists, leads CSV and the access log.
	Dir string
}

type SessionConfig struct {
	// Secret signs the session cookie, 32 bytes minimum.
	Secret string
	// TOTPEncryptionKey encrypts stored TOTP secrets; empty disables the
	// optional second factor. Exactly 32 bytes when set.
	TOTPEncryptionKey string
	CleanupInterval   time.Duration
}

type ContactConfig struct {
	RateLimit      int
	RateWindow     time.Duration
	MinFillSeconds int
	BypassLoopback bool
}

type NotifyConfig struct {
	// Channel selects the lead notifier: "telegram", "email" or "" for none.
	Channel      string
	AWSRegion    string
	EmailFrom    string
	EmailTo      string
	TelegramAPI  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(sessionSecret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be at least 32 bytes (got %d)", len(sessionSecret))
	}

	totpKey := getEnv("TOTP_ENCRYPTION_KEY", "")
	if totpKey != "" && len(totpKey) != 32 {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must be exactly 32 bytes (got %d)", len(totpKey))
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Data: DataConfig{
			Dir: getEnv("DATA_DIR", "./data"),
		},
		Session: SessionConfig{
			Secret:            sessionSecret,
			TOTPEncryptionKey: totpKey,
			CleanupInterval:   getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Contact: ContactConfig{
			RateLimit:      getEnvAsInt("CONTACT_RATE_LIMIT", 5),
			RateWindow:     getEnvAsDuration("CONTACT_RATE_WINDOW", time.Hour),
			MinFillSeconds: getEnvAsInt("CONTACT_MIN_FILL_SECONDS", 3),
			BypassLoopback: getEnvAsBool("CONTACT_BYPASS_LOOPBACK", env != "production"),
		},
		Notify: NotifyConfig{
			Channel:     getEnv("NOTIFY_CHANNEL", "telegram"),
			AWSRegion:   getEnv("AWS_REGION", "eu-central-1"),
			EmailFrom:   getEnv("NOTIFY_EMAIL_FROM", ""),
			EmailTo:     getEnv("NOTIFY_EMAIL_TO", ""),
			TelegramAPI: getEnv("TELEGRAM_API_URL", ""),
		},
	}

	switch cfg.Notify.Channel {
	case "", "telegram":
	case "email":
		if cfg.Notify.EmailFrom == "" || cfg.Notify.EmailTo == "" {
			return nil, fmt.Errorf("NOTIFY_EMAIL_FROM and NOTIFY_EMAIL_TO are required for the email channel")
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_CHANNEL %q", cfg.Notify.Channel)
	}

	if cfg.Server.Env == "production" && isWeakSecret(sessionSecret) {
		return nil, fmt.Errorf("SESSION_SECRET cannot be a common weak value")
	}

	return cfg, nil
}

func isWeakSecret(secret string) bool {
	weak := []string{"secret", "password", "changeme", "default", "example"}
	lower := strings.ToLower(secret)
	for _, w := range weak {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
