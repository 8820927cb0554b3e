package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds burst limiting configuration. This is the outer,
// in-memory guard against hammering; the durable lockout and submission
// windows live in the service layer.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultLoginRateLimit limits login posts to 10 per minute per client.
// High enough that the durable five-attempt lockout triggers first.
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 10}
}

// DefaultContactRateLimit limits contact form posts to 10 per minute per client.
func DefaultContactRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 10}
}

// RateLimitByIP creates a middleware that limits request bursts by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests"}`))
		}),
	)
}
