package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/vistav/site-api/internal/auth"
	"github.com/vistav/site-api/internal/handlers"
	"github.com/vistav/site-api/internal/middleware"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth     *handlers.AuthHandler
	Contact  *handlers.ContactHandler
	Prices   *handlers.PricesHandler
	Security *handlers.SecurityHandler

	Sessions *auth.SessionManager
	Policy   middleware.SecurityPolicyProvider
	Rotation middleware.PasswordRotationGuard
	Audit    middleware.AuditTrail
	IPConfig *pkghttp.IPConfig
	Logger   *slog.Logger
}

// Register registers all application routes. The router is expected to
// already run the session middleware.
func Register(router chi.Router, deps Deps) {
	loginLimit := middleware.RateLimitByIP(middleware.DefaultLoginRateLimit())
	contactLimit := middleware.RateLimitByIP(middleware.DefaultContactRateLimit())

	// Public contact form
	router.Get("/contact/token", deps.Contact.Token)
	router.With(contactLimit).Post("/contact", deps.Contact.Submit)

	// Admin area
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.IPWhitelist(deps.Policy, deps.Audit, deps.IPConfig, deps.Logger))

		r.With(loginLimit).Post("/login", deps.Auth.Login)

		// Everything below needs a live admin session
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(deps.Sessions, deps.Audit, deps.IPConfig))
			r.Use(middleware.RequireCSRF(deps.Sessions))

			// Reachable even while the bootstrap password is unrotated
			r.Post("/logout", deps.Auth.Logout)
			r.Post("/password", deps.Auth.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRotatedPassword(deps.Rotation))

				r.Post("/totp/enroll", deps.Auth.EnrollTOTP)
				r.Post("/totp/disable", deps.Auth.DisableTOTP)

				r.Get("/prices/{lang}", deps.Prices.Get)
				r.Put("/prices/{lang}", deps.Prices.Put)

				r.Route("/security", func(r chi.Router) {
					r.Get("/config", deps.Security.GetConfig)
					r.Put("/config", deps.Security.PutConfig)
					r.Get("/logs", deps.Security.GetLogs)
					r.Post("/logs/clear", deps.Security.ClearLogs)
					r.Get("/logs/download", deps.Security.DownloadLogs)
				})
			})
		})
	})
}
