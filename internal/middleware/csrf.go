package middleware

import (
	"net/http"

	"github.com/vistav/site-api/internal/auth"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// CSRFHeader carries the session's CSRF token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

// RequireCSRF rejects state-changing requests whose CSRF header does not
// match the session token. Safe methods pass through.
func RequireCSRF(manager *auth.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			sess := SessionFromContext(r.Context())
			if sess == nil || !manager.ValidateCSRF(sess, r.Header.Get(CSRFHeader)) {
				pkghttp.WriteForbidden(w, "Invalid or expired security token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PasswordRotationGuard supplies the forced rotation check
type PasswordRotationGuard interface {
	RequireRotatedPassword() error
}

// RequireRotatedPassword blocks privileged routes until the bootstrap
// password has been replaced. Logout and the password change endpoint stay
// outside this gate.
func RequireRotatedPassword(guard PasswordRotationGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := guard.RequireRotatedPassword(); err != nil {
				pkghttp.WriteError(w, http.StatusForbidden, "password_rotation_required",
					"Change the default password before using the administration")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
