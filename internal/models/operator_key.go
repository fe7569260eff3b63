package models

import "time"

// OperatorKey authenticates the operator-facing monitoring surface.
// The secret half of the key is stored bcrypt-hashed; the plaintext is shown
// once at creation.
type OperatorKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SecretHash string     `json:"-"` // never exposed
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// IsActive returns true if the key has not been revoked
func (k *OperatorKey) IsActive() bool {
	return k.RevokedAt == nil
}
