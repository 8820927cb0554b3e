package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vistav/site-api/internal/models"
)

// Session is the server-side state for one browser session. Anonymous
// sessions carry only CSRF and time-trap state for the contact form;
// authenticated sessions additionally carry the admin login.
type Session struct {
	ID       string
	LoggedIn bool
	Username string
	LoginAt  time.Time

	csrfToken  string
	csrfExpiry time.Time

	formIssuedAt time.Time // zero = no pending form

	lastSeen time.Time

	mu sync.Mutex
}

// SessionManager owns all server-side sessions. The browser carries only an
// HMAC-signed token holding the session id, so the cookie cannot be forged
// or edited; all mutable state stays on the server.
type SessionManager struct {
	secret  []byte
	timeout func() time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a session manager. timeout is read per check so
// dashboard edits to the session policy apply to live sessions.
func NewSessionManager(secret []byte, timeout func() time.Duration) (*SessionManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}
	return &SessionManager{
		secret:   secret,
		timeout:  timeout,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}, nil
}

// SetNowFunc overrides the clock. Test hook.
func (m *SessionManager) SetNowFunc(now func() time.Time) {
	m.now = now
}

// Create starts a fresh anonymous session and returns it with its signed
// cookie value.
func (m *SessionManager) Create() (*Session, string, error) {
	sid := uuid.NewString()
	s := &Session{ID: sid, lastSeen: m.now()}

	value, err := m.signCookie(sid)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[sid] = s
	m.mu.Unlock()

	return s, value, nil
}

// Lookup resolves a signed cookie value to its live session.
func (m *SessionManager) Lookup(cookieValue string) (*Session, bool) {
	sid, err := m.parseCookie(cookieValue)
	if err != nil {
		return nil, false
	}

	m.mu.RLock()
	s, ok := m.sessions[sid]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	s.lastSeen = m.now()
	s.mu.Unlock()
	return s, true
}

// Login marks the session authenticated, stamps the login time and issues a
// fresh CSRF token.
func (m *SessionManager) Login(s *Session, username string) (string, error) {
	s.mu.Lock()
	s.LoggedIn = true
	s.Username = username
	s.LoginAt = m.now()
	s.mu.Unlock()

	return m.IssueCSRF(s)
}

// Authenticated reports whether the session holds a live admin login.
// Once the session age exceeds the timeout the session is destroyed as a
// side effect, equivalent to a forced logout.
func (m *SessionManager) Authenticated(s *Session) bool {
	s.mu.Lock()
	loggedIn, loginAt := s.LoggedIn, s.LoginAt
	s.mu.Unlock()

	if !loggedIn {
		return false
	}
	if m.now().Sub(loginAt) >= m.timeout() {
		m.Destroy(s)
		return false
	}
	return true
}

// Destroy removes the session and all its state unconditionally.
func (m *SessionManager) Destroy(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	s.mu.Lock()
	s.LoggedIn = false
	s.Username = ""
	s.csrfToken = ""
	s.formIssuedAt = time.Time{}
	s.mu.Unlock()
}

// StartCleanup periodically drops sessions that have been idle for longer
// than the session timeout, so abandoned anonymous sessions do not pile up.
func (m *SessionManager) StartCleanup(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.dropIdle()
		}
	}
}

func (m *SessionManager) dropIdle() {
	cutoff := m.now().Add(-m.timeout())

	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, sid)
		}
	}
}

// RequireAuthenticated returns models.ErrUnauthorized unless the session
// holds a live login. Gate for every administrative operation.
func (m *SessionManager) RequireAuthenticated(s *Session) error {
	if s == nil || !m.Authenticated(s) {
		return models.ErrUnauthorized
	}
	return nil
}

func (m *SessionManager) signCookie(sid string) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       sid,
		IssuedAt: jwt.NewNumericDate(m.now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

func (m *SessionManager) parseCookie(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", fmt.Errorf("invalid session claims")
	}
	return claims.ID, nil
}
