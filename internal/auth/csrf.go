package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// CSRF tokens are valid for one hour, matching the session timeout default.
const csrfTTL = time.Hour

// IssueCSRF generates a fresh anti-forgery token for the session,
// overwriting any prior token. One live token per session.
func (m *SessionManager) IssueCSRF(s *Session) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	token := hex.EncodeToString(randomBytes)

	s.mu.Lock()
	s.csrfToken = token
	s.csrfExpiry = m.now().Add(csrfTTL)
	s.mu.Unlock()

	return token, nil
}

// ValidateCSRF reports whether candidate matches the session's live token.
// Always false when no token was issued or it has expired; an expired token
// is cleared on observation. The comparison is constant-time.
func (m *SessionManager) ValidateCSRF(s *Session, candidate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.csrfToken == "" {
		return false
	}
	if m.now().After(s.csrfExpiry) {
		s.csrfToken = ""
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.csrfToken), []byte(candidate)) == 1
}
