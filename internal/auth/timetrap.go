package auth

import (
	"time"

	"github.com/vistav/site-api/internal/models"
)

// The time trap deters scripted form submission: a human needs a few seconds
// between loading the form and posting it, a bot usually does not wait.

// MarkFormIssued records the form-issuance time for the session. Idempotent:
// a pending timer is not reset, so re-fetching the token cannot restart the
// clock.
func (m *SessionManager) MarkFormIssued(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.formIssuedAt.IsZero() {
		s.formIssuedAt = m.now()
	}
}

// ConsumeFormIssued enforces the minimum delay between form issuance and
// submission. Single-use: a successful check clears the timestamp, so a
// second submission needs a fresh form issuance.
func (m *SessionManager) ConsumeFormIssued(s *Session, minDelay int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.formIssuedAt.IsZero() {
		return models.ErrSubmissionTooFast
	}
	if m.now().Sub(s.formIssuedAt).Seconds() < float64(minDelay) {
		return models.ErrSubmissionTooFast
	}
	s.formIssuedAt = time.Time{}
	return nil
}
