package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vistav/site-api/internal/auth"
	"github.com/vistav/site-api/internal/middleware"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/services"
	pkgauth "github.com/vistav/site-api/pkg/auth"
	pkghttp "github.com/vistav/site-api/pkg/http"
)

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	service  *services.AuthService
	cookies  auth.CookieConfig
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service *services.AuthService, cookies auth.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
	OTPCode  string `json:"otp_code" validate:"omitempty,len=6,numeric"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	CSRFToken          string `json:"csrf_token"`
	MustChangePassword bool   `json:"must_change_password"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// DisableTOTPRequest represents the request body for disabling the second factor
type DisableTOTPRequest struct {
	Password string `json:"password" validate:"required"`
}

// Login handles POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	result, err := h.service.Login(sess, req.Username, req.Password, req.OTPCode, identifier, r.UserAgent())
	if err != nil {
		var limited *models.RateLimitedError
		switch {
		case errors.As(err, &limited):
			writeLockout(w, limited)
		case errors.Is(err, models.ErrTOTPRequired):
			pkghttp.WriteError(w, http.StatusUnauthorized, "totp_required", "One-time code required")
		case errors.Is(err, models.ErrTOTPInvalid):
			pkghttp.WriteError(w, http.StatusUnauthorized, "totp_invalid", "Invalid one-time code")
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid username or password")
		default:
			pkghttp.WriteInternalError(w, "Something went wrong")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		CSRFToken:          result.CSRFToken,
		MustChangePassword: result.MustChangePassword,
	})
}

// Logout handles POST /admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)

	h.service.Logout(sess, identifier, r.UserAgent())
	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// ChangePassword handles POST /admin/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	if err := h.service.ChangePassword(req.CurrentPassword, req.NewPassword, identifier, r.UserAgent()); err != nil {
		var pwErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &pwErr):
			pkghttp.WriteBadRequest(w, pwErr.Error())
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		default:
			pkghttp.WriteInternalError(w, "Something went wrong")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

// EnrollTOTP handles POST /admin/totp/enroll
func (h *AuthHandler) EnrollTOTP(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	enrollment, err := h.service.EnrollTOTP(sess.Username, identifier, r.UserAgent())
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Two-factor authentication is not configured on this server")
			return
		}
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"secret":      enrollment.Secret,
		"qr_data_url": enrollment.QRDataURL,
	})
}

// DisableTOTP handles POST /admin/totp/disable
func (h *AuthHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	var req DisableTOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identifier := pkghttp.ExtractClientIP(r, h.ipConfig)
	if err := h.service.DisableTOTP(req.Password, identifier, r.UserAgent()); err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			pkghttp.WriteUnauthorized(w, "Password is incorrect")
			return
		}
		pkghttp.WriteInternalError(w, "Something went wrong")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Two-factor authentication disabled"})
}

// writeLockout rounds the wait up to whole minutes for the human message
// while the Retry-After header keeps the exact seconds.
func writeLockout(w http.ResponseWriter, limited *models.RateLimitedError) {
	seconds := int(limited.RetryAfter.Seconds())
	if float64(seconds) < limited.RetryAfter.Seconds() {
		seconds++
	}
	minutes := (seconds + 59) / 60
	msg := "Too many login attempts. Try again in 1 minute."
	if minutes > 1 {
		msg = fmt.Sprintf("Too many login attempts. Try again in %d minutes.", minutes)
	}
	pkghttp.WriteTooManyRequests(w, msg, seconds)
}
