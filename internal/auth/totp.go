package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPManager handles the optional second factor for the admin account.
// The shared secret is encrypted at rest with AES-256-GCM because the
// credential document lives in a plain file on disk.
type TOTPManager struct {
	encryptionKey []byte // 32-byte AES-256 key
	issuer        string // Issuer name for authenticator apps
}

// NewTOTPManager creates a TOTP manager.
// encryptionKey must be exactly 32 bytes for AES-256.
func NewTOTPManager(encryptionKey []byte, issuer string) (*TOTPManager, error) {
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(encryptionKey))
	}
	return &TOTPManager{
		encryptionKey: encryptionKey,
		issuer:        issuer,
	}, nil
}

// Enrollment holds everything the admin needs to finish TOTP setup.
type Enrollment struct {
	EncryptedSecret string // base64, for the credential record
	Nonce           string // base64, for the credential record
	Secret          string // base32, shown once for manual entry
	QRDataURL       string // PNG data URL for authenticator apps
}

// GenerateEnrollment creates a new secret, its QR provisioning code and the
// encrypted form for storage.
func (tm *TOTPManager) GenerateEnrollment(accountName string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountName,
		SecretSize:  32,
		Period:      30,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	encrypted, nonce, err := tm.encryptSecret([]byte(key.Secret()))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	qr, err := qrcode.New(key.URL(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	png, err := qr.PNG(200)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &Enrollment{
		EncryptedSecret: base64.StdEncoding.EncodeToString(encrypted),
		Nonce:           base64.StdEncoding.EncodeToString(nonce),
		Secret:          key.Secret(),
		QRDataURL:       "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// ValidateCode checks a one-time code against the stored encrypted secret.
func (tm *TOTPManager) ValidateCode(encryptedSecret, nonce, code string) (bool, error) {
	secret, err := tm.decryptSecret(encryptedSecret, nonce)
	if err != nil {
		return false, err
	}
	return totp.Validate(code, string(secret)), nil
}

func (tm *TOTPManager) encryptSecret(secret []byte) ([]byte, []byte, error) {
	block, err := aes.NewCipher(tm.encryptionKey)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, secret, nil), nonce, nil
}

func (tm *TOTPManager) decryptSecret(encryptedB64, nonceB64 string) ([]byte, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encryptedB64)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted secret: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}

	block, err := aes.NewCipher(tm.encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	secret, err := gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt TOTP secret: %w", err)
	}
	return secret, nil
}
