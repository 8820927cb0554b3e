package models

import "time"

// LoginAttempt tracks failed logins for one identifier (client IP).
// A missing record means the identifier is clean.
type LoginAttempt struct {
	Count       int   `json:"count"`
	LastAttempt int64 `json:"last_attempt"` // unix seconds
}

// LastAttemptTime returns the last attempt as a time.Time.
func (a LoginAttempt) LastAttemptTime() time.Time {
	return time.Unix(a.LastAttempt, 0)
}

// AttemptLedger is the persisted form of the attempt file:
// identifier -> attempt record.
type AttemptLedger map[string]LoginAttempt
