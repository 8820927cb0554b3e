package repositories

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/storage"
	pkgauth "github.com/vistav/site-api/pkg/auth"
)

// Bootstrap credentials written on first use. The record is flagged for
// forced rotation, so the well-known default only ever works for the very
// first login.
const (
	bootstrapUsername = "admin"
	bootstrapPassword = "admin123"
)

// CredentialRepository owns the single admin credential document.
type CredentialRepository struct {
	store *storage.DocumentStore
	now   func() time.Time
}

// NewCredentialRepository creates the repository over the given store.
func NewCredentialRepository(store *storage.DocumentStore) *CredentialRepository {
	return &CredentialRepository{store: store, now: time.Now}
}

// SetNowFunc overrides the clock. Test hook.
func (r *CredentialRepository) SetNowFunc(now func() time.Time) {
	r.now = now
}

// Get returns the credential record, creating the bootstrap record when the
// document does not exist yet.
func (r *CredentialRepository) Get() (*models.Credential, error) {
	var cred models.Credential
	err := r.store.Load(&cred)
	if err == nil {
		return &cred, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(bootstrapPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	cred = models.Credential{}
	err = r.store.Update(&cred, func(exists bool) error {
		if exists {
			// Another process bootstrapped first; keep its record.
			return nil
		}
		cred = models.Credential{
			Username:           bootstrapUsername,
			PasswordHash:       hash,
			MustChangePassword: true,
			CreatedAt:          r.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Verify checks a username/password pair against the stored record.
// Returns models.ErrInvalidCredentials on any mismatch; username and
// password failures are indistinguishable and the password hash is always
// compared so both paths cost the same.
func (r *CredentialRepository) Verify(username, password string) (*models.Credential, error) {
	cred, err := r.Get()
	if err != nil {
		return nil, err
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(cred.Username)) == 1
	passwordOK := pkgauth.ComparePassword(cred.PasswordHash, password) == nil

	if !usernameOK || !passwordOK {
		return nil, models.ErrInvalidCredentials
	}
	return cred, nil
}

// ChangePassword verifies the current password before replacing the hash.
// A successful change clears the forced-rotation flag.
func (r *CredentialRepository) ChangePassword(currentPassword, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var cred models.Credential
	return r.store.Update(&cred, func(exists bool) error {
		if !exists {
			return models.ErrNotFound
		}
		if pkgauth.ComparePassword(cred.PasswordHash, currentPassword) != nil {
			return models.ErrInvalidCredentials
		}
		now := r.now()
		cred.PasswordHash = hash
		cred.MustChangePassword = false
		cred.UpdatedAt = &now
		return nil
	})
}

// SetTOTPSecret stores the encrypted second-factor secret.
func (r *CredentialRepository) SetTOTPSecret(encryptedSecret, nonce string) error {
	var cred models.Credential
	return r.store.Update(&cred, func(exists bool) error {
		if !exists {
			return models.ErrNotFound
		}
		now := r.now()
		cred.TOTPSecret = encryptedSecret
		cred.TOTPNonce = nonce
		cred.UpdatedAt = &now
		return nil
	})
}

// ClearTOTPSecret disables the second factor.
func (r *CredentialRepository) ClearTOTPSecret() error {
	var cred models.Credential
	return r.store.Update(&cred, func(exists bool) error {
		if !exists {
			return models.ErrNotFound
		}
		now := r.now()
		cred.TOTPSecret = ""
		cred.TOTPNonce = ""
		cred.UpdatedAt = &now
		return nil
	})
}
