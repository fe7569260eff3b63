package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are carried by the viewer's bearer token for the lifetime of a
// granted viewing session. Seed reproduces the watermark plan client-side.
type SessionClaims struct {
	SessionID    string `json:"sid"`
	Token        string `json:"tok"`
	SubscriberID string `json:"sub_id"`
	Seed         int64  `json:"seed"`
	jwt.RegisteredClaims
}

// SessionTokenManager signs and verifies the short-lived JWT handed to the
// viewer on a successful validation. It is the only credential accepted by the
// heartbeat and capture endpoints.
type SessionTokenManager struct {
	secret string
	expiry time.Duration
}

// NewSessionTokenManager creates a new SessionTokenManager
func NewSessionTokenManager(secret string, expiry time.Duration) *SessionTokenManager {
	return &SessionTokenManager{secret: secret, expiry: expiry}
}

// Generate mints a session token for a granted viewing session
func (m *SessionTokenManager) Generate(sessionID, tokenString, subscriberID string, seed int64) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID:    sessionID,
		Token:        tokenString,
		SubscriberID: subscriberID,
		Seed:         seed,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Validate verifies a session token and returns its claims
func (m *SessionTokenManager) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	return claims, nil
}
