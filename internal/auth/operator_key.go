package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	operatorKeyPrefix = "edg_"
	keyIDHexLen       = 16
	keySecretHexLen   = 48
	bcryptCost        = 12
)

// OperatorKeyManager generates and verifies operator API keys. A key is
// edg_<id>_<secret>; the id half is stored in the clear for lookup and the
// secret half only as a bcrypt hash.
type OperatorKeyManager struct{}

// NewOperatorKeyManager creates a new OperatorKeyManager
func NewOperatorKeyManager() *OperatorKeyManager {
	return &OperatorKeyManager{}
}

// Generate creates a new key. Returns the plaintext (shown once), the id half,
// and the bcrypt hash of the secret half.
func (m *OperatorKeyManager) Generate() (plainKey, id, secretHash string, err error) {
	idBytes := make([]byte, keyIDHexLen/2)
	if _, err := rand.Read(idBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key id: %w", err)
	}

	secretBytes := make([]byte, keySecretHexLen/2)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key secret: %w", err)
	}

	id = hex.EncodeToString(idBytes)
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash key secret: %w", err)
	}

	plainKey = operatorKeyPrefix + id + "_" + secret
	return plainKey, id, string(hash), nil
}

// Split parses a presented key into its id and secret halves
func (m *OperatorKeyManager) Split(plainKey string) (id, secret string, err error) {
	if !strings.HasPrefix(plainKey, operatorKeyPrefix) {
		return "", "", errors.New("invalid operator key format: missing prefix")
	}

	rest := strings.TrimPrefix(plainKey, operatorKeyPrefix)
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 || len(parts[0]) != keyIDHexLen || len(parts[1]) != keySecretHexLen {
		return "", "", errors.New("invalid operator key format")
	}

	return parts[0], parts[1], nil
}

// Verify compares a presented secret against the stored bcrypt hash
func (m *OperatorKeyManager) Verify(secretHash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)) == nil
}
