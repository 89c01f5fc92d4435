package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// APIKey authenticates event producers. The plaintext key has the form
// "wd_<keyID>_<secret>"; only a bcrypt hash of the secret is stored.
type APIKey struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	SecretHash string     `json:"-"`
	Label      string     `json:"label,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Revoked    bool       `json:"revoked"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

const apiKeyPrefix = "wd"

// NewAPIKey creates an API key for a tenant. Returns the key model and
// the plaintext key, which is shown exactly once.
func NewAPIKey(tenantID, label string) (*APIKey, string, error) {
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	keyID := strings.ReplaceAll(uuid.New().String(), "-", "")
	key := &APIKey{
		ID:         keyID,
		TenantID:   tenantID,
		SecretHash: string(hash),
		Label:      label,
		CreatedAt:  time.Now(),
	}
	return key, fmt.Sprintf("%s_%s_%s", apiKeyPrefix, keyID, secret), nil
}

// ParseAPIKey splits a plaintext key into its id and secret parts.
func ParseAPIKey(plain string) (keyID, secret string, err error) {
	parts := strings.SplitN(plain, "_", 3)
	if len(parts) != 3 || parts[0] != apiKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("malformed api key")
	}
	return parts[1], parts[2], nil
}

// VerifySecret compares a plaintext secret against the stored hash.
func (k *APIKey) VerifySecret(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(k.SecretHash), []byte(secret)) == nil
}

// IsValid reports whether the key may authenticate requests.
func (k *APIKey) IsValid() bool {
	return !k.Revoked
}
