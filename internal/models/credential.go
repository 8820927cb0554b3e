package models

import "time"

// Credential is the single admin login record, stored as one JSON document.
// The password is only ever persisted as a bcrypt hash.
type Credential struct {
	Username           string     `json:"username"`
	PasswordHash       string     `json:"password"`
	MustChangePassword bool       `json:"must_change_password"`
	TOTPSecret         string     `json:"totp_secret,omitempty"`
	TOTPNonce          string     `json:"totp_nonce,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// TOTPEnabled reports whether a second factor has been enrolled.
func (c *Credential) TOTPEnabled() bool {
	return c.TOTPSecret != ""
}
