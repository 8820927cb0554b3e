package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vistav/site-api/internal/accesslog"
	"github.com/vistav/site-api/internal/auth"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

type contextKey string

const sessionContextKey contextKey = "session"

// AuditTrail records security relevant events in the durable access log
type AuditTrail interface {
	Record(action, identifier, details, userAgent string) error
}

// Sessions attaches a server side session to every request. A request
// without a valid session cookie gets a fresh anonymous session and cookie.
// Anonymous sessions carry the contact form CSRF and fill-time state.
func Sessions(manager *auth.SessionManager, cookies auth.CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *auth.Session
			if cookieValue := auth.GetSessionCookie(r); cookieValue != "" {
				sess, _ = manager.Lookup(cookieValue)
			}
			if sess == nil {
				var cookieValue string
				var err error
				sess, cookieValue, err = manager.Create()
				if err != nil {
					logger.Error("failed to create session", slog.Any("error", err))
					pkghttp.WriteInternalError(w, "Something went wrong")
					return
				}
				auth.SetSessionCookie(w, cookieValue, cookies)
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the request's session, or nil outside the
// Sessions middleware.
func SessionFromContext(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return sess
}

// RequireAdmin rejects requests whose session does not hold a live admin
// login. A login that just aged out is recorded as a session timeout.
func RequireAdmin(manager *auth.SessionManager, audit AuditTrail, ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			wasLoggedIn := sess != nil && sess.LoggedIn

			if err := manager.RequireAuthenticated(sess); err != nil {
				if wasLoggedIn {
					identifier := pkghttp.ExtractClientIP(r, ipConfig)
					_ = audit.Record(accesslog.ActionSessionTimeout, identifier, "", r.UserAgent())
				}
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
