package repositories

import (
	"context"
	"time"

	"github.com/hwainwright/gatefold/internal/models"
)

// TokenRepository handles access-token persistence. The three mutation
// primitives (BindFingerprint, ObserveIP, IncrementAccess) are each a single
// conditional statement against the row, so concurrent validations for the
// same token never lose updates; the validator composes them.
type TokenRepository interface {
	Create(ctx context.Context, token *models.AccessToken) error
	GetByToken(ctx context.Context, tokenString string) (*models.AccessToken, error)

	// BindFingerprint writes the fingerprint only if no fingerprint is bound
	// yet and returns whatever value the row holds afterwards. Under a
	// first-use race exactly one caller's value survives; every caller
	// observes the winner.
	BindFingerprint(ctx context.Context, tokenString, fingerprint string) (string, error)

	// ObserveIP adds the IP to the token's distinct set unless already
	// present and returns the full set afterwards.
	ObserveIP(ctx context.Context, tokenString, ip string) ([]string, error)

	// IncrementAccess bumps the access counter, marks the token used, and
	// returns the new count.
	IncrementAccess(ctx context.Context, tokenString string) (int, error)

	// Revoke terminates the token. Revoking an already-revoked token is a
	// no-op that preserves the original reason and timestamp.
	Revoke(ctx context.Context, tokenString, reason string) error

	ListBySubscriber(ctx context.Context, subscriberID string, limit, offset int) ([]*models.AccessToken, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// rowScanner abstracts pgx.Row and pgx.Rows for the scan helpers
type rowScanner interface {
	Scan(dest ...interface{}) error
}
