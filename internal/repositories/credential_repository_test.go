package repositories_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/repositories"
	"github.com/vistav/site-api/internal/storage"
)

func newCredentialRepo(t *testing.T) *repositories.CredentialRepository {
	t.Helper()
	store, err := storage.NewDocumentStore(filepath.Join(t.TempDir(), "admin_credentials.json"))
	require.NoError(t, err)
	return repositories.NewCredentialRepository(store)
}

func TestCredentialGet_BootstrapsDefaultRecord(t *testing.T) {
	repo := newCredentialRepo(t)

	cred, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, "admin", cred.Username)
	assert.NotEmpty(t, cred.PasswordHash)
	assert.NotContains(t, cred.PasswordHash, "admin123") // never plaintext
	assert.True(t, cred.MustChangePassword)
	assert.False(t, cred.CreatedAt.IsZero())

	// Second call returns the same record, no re-bootstrap
	again, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, cred.PasswordHash, again.PasswordHash)
}

func TestCredentialVerify(t *testing.T) {
	repo := newCredentialRepo(t)

	cred, err := repo.Verify("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", cred.Username)

	// Wrong password and wrong username yield the same error
	_, err = repo.Verify("admin", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = repo.Verify("root", "admin123")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestCredentialChangePassword(t *testing.T) {
	repo := newCredentialRepo(t)
	_, err := repo.Get()
	require.NoError(t, err)

	require.NoError(t, repo.ChangePassword("admin123", "Stavba2026ok"))

	cred, err := repo.Verify("admin", "Stavba2026ok")
	require.NoError(t, err)
	assert.False(t, cred.MustChangePassword)
	assert.NotNil(t, cred.UpdatedAt)

	_, err = repo.Verify("admin", "admin123")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestCredentialChangePassword_WrongCurrent(t *testing.T) {
	repo := newCredentialRepo(t)
	_, err := repo.Get()
	require.NoError(t, err)

	err = repo.ChangePassword("not-the-password", "Stavba2026ok")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestCredentialChangePassword_WeakNewPassword(t *testing.T) {
	repo := newCredentialRepo(t)
	_, err := repo.Get()
	require.NoError(t, err)

	assert.Error(t, repo.ChangePassword("admin123", "weak"))
	// The bootstrap default cannot be chosen again
	assert.Error(t, repo.ChangePassword("admin123", "admin123"))
}

func TestCredentialTOTPSecret(t *testing.T) {
	repo := newCredentialRepo(t)
	_, err := repo.Get()
	require.NoError(t, err)

	require.NoError(t, repo.SetTOTPSecret("enc-secret", "nonce"))
	cred, err := repo.Get()
	require.NoError(t, err)
	assert.True(t, cred.TOTPEnabled())
	assert.Equal(t, "enc-secret", cred.TOTPSecret)

	require.NoError(t, repo.ClearTOTPSecret())
	cred, err = repo.Get()
	require.NoError(t, err)
	assert.False(t, cred.TOTPEnabled())
}
