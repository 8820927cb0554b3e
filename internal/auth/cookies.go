package auth

import (
	"net/http"
)

// SessionCookieName is the cookie carrying the signed session id.
const SessionCookieName = "vistav_session"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Secure bool // HTTPS only
}

// SetSessionCookie sets the signed session id in an httpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, value string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true, // prevents JavaScript access
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie deletes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionCookie retrieves the raw session cookie value, empty when absent.
func GetSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
