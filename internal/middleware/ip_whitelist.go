package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/models"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// SecurityPolicyProvider supplies the current guard policy
type SecurityPolicyProvider interface {
	Get() (models.SecurityConfig, error)
}

// IPWhitelist restricts admin routes to the configured addresses when the
// whitelist is switched on. Loopback callers always pass so a bad whitelist
// cannot lock the admin out of their own box.
func IPWhitelist(policy SecurityPolicyProvider, audit AuditTrail, ipConfig *pkghttp.IPConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg, err := policy.Get()
			if err != nil {
				logger.Error("failed to load security policy", slog.Any("error", err))
				pkghttp.WriteInternalError(w, "Something went wrong")
				return
			}
			if !cfg.EnableIPWhitelist {
				next.ServeHTTP(w, r)
				return
			}

			identifier := pkghttp.ExtractClientIP(r, ipConfig)
			if pkghttp.IsLoopback(identifier) || ipAllowed(identifier, cfg.AllowedIPs) {
				next.ServeHTTP(w, r)
				return
			}

			_ = audit.Record(accesslog.ActionIPBlocked, identifier, "not on whitelist", r.UserAgent())
			logger.Warn("blocked non-whitelisted address", slog.String("identifier", identifier))
			pkghttp.WriteForbidden(w, "Access denied")
		})
	}
}

func ipAllowed(identifier string, allowed []string) bool {
	ip := net.ParseIP(identifier)
	if ip == nil {
		return false
	}
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			if _, cidr, err := net.ParseCIDR(entry); err == nil && cidr.Contains(ip) {
				return true
			}
			continue
		}
		if other := net.ParseIP(entry); other != nil && other.Equal(ip) {
			return true
		}
	}
	return false
}
