package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/hwainwright/gatefold/internal/database"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const tokenColumns = `token, document_id, subscriber_id, subscriber_name, subscriber_number,
	issued_at, expires_at, revoked, revoked_reason, revoked_at, used,
	access_count, max_access_count, device_fingerprint, ip_addresses, created_at, updated_at`

// TokenRepositoryImpl implements TokenRepository on postgres
type TokenRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.DB) TokenRepository {
	return &TokenRepositoryImpl{pool: db.Pool}
}

// scanTokenRow handles nullable fields and populates an AccessToken model from a database row
func scanTokenRow(scanner rowScanner) (*models.AccessToken, error) {
	var t models.AccessToken
	var revokedReason, fingerprint *string
	var revokedAt *time.Time

	err := scanner.Scan(
		&t.Token,
		&t.DocumentID,
		&t.SubscriberID,
		&t.SubscriberName,
		&t.SubscriberNumber,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.Revoked,
		&revokedReason,
		&revokedAt,
		&t.Used,
		&t.AccessCount,
		&t.MaxAccessCount,
		&fingerprint,
		pq.Array(&t.IPAddresses),
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	t.RevokedReason = revokedReason
	t.RevokedAt = revokedAt
	t.DeviceFingerprint = fingerprint

	return &t, nil
}

// scanTokenRows iterates through rows and scans each into AccessToken models
func scanTokenRows(rows pgx.Rows) ([]*models.AccessToken, error) {
	defer rows.Close()

	tokens := make([]*models.AccessToken, 0)

	for rows.Next() {
		token, err := scanTokenRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token rows: %w", err)
	}

	return tokens, nil
}

// Create stores a newly issued token
func (r *TokenRepositoryImpl) Create(ctx context.Context, token *models.AccessToken) error {
	query := `
		INSERT INTO access_tokens (
			token, document_id, subscriber_id, subscriber_name, subscriber_number,
			issued_at, expires_at, max_access_count, ip_addresses
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '{}')
	`

	_, err := r.pool.Exec(ctx, query,
		token.Token,
		token.DocumentID,
		token.SubscriberID,
		token.SubscriberName,
		token.SubscriberNumber,
		token.IssuedAt,
		token.ExpiresAt,
		token.MaxAccessCount,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// GetByToken retrieves a token by its opaque string
func (r *TokenRepositoryImpl) GetByToken(ctx context.Context, tokenString string) (*models.AccessToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM access_tokens WHERE token = $1`

	return scanTokenRow(r.pool.QueryRow(ctx, query, tokenString))
}

// BindFingerprint performs the first-use bind as a single compare-and-set
// statement: the fingerprint column is only written while it is still NULL,
// so exactly one concurrent first-use request wins. The returned value is the
// column's content after the statement, i.e. the winning fingerprint.
func (r *TokenRepositoryImpl) BindFingerprint(ctx context.Context, tokenString, fingerprint string) (string, error) {
	query := `
		UPDATE access_tokens
		SET device_fingerprint = COALESCE(device_fingerprint, $2), updated_at = now()
		WHERE token = $1
		RETURNING device_fingerprint
	`

	var bound string
	if err := r.pool.QueryRow(ctx, query, tokenString, fingerprint).Scan(&bound); err != nil {
		return "", database.MapPostgresError(err)
	}

	return bound, nil
}

// ObserveIP unions the presented IP into the token's distinct-IP set without a
// read-then-write. Row-level locking serializes concurrent observers, so the
// set grows monotonically and never records duplicates.
func (r *TokenRepositoryImpl) ObserveIP(ctx context.Context, tokenString, ip string) ([]string, error) {
	query := `
		UPDATE access_tokens
		SET ip_addresses = CASE
			WHEN $2 = ANY(ip_addresses) THEN ip_addresses
			ELSE array_append(ip_addresses, $2)
		END,
		updated_at = now()
		WHERE token = $1
		RETURNING ip_addresses
	`

	var ips []string
	if err := r.pool.QueryRow(ctx, query, tokenString, ip).Scan(pq.Array(&ips)); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return ips, nil
}

// IncrementAccess bumps the access counter atomically
func (r *TokenRepositoryImpl) IncrementAccess(ctx context.Context, tokenString string) (int, error) {
	query := `
		UPDATE access_tokens
		SET access_count = access_count + 1, used = TRUE, updated_at = now()
		WHERE token = $1
		RETURNING access_count
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, tokenString).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return count, nil
}

// Revoke terminates the token. COALESCE keeps the first revocation's reason
// and timestamp, so a second revoke never rewrites terminal state.
func (r *TokenRepositoryImpl) Revoke(ctx context.Context, tokenString, reason string) error {
	query := `
		UPDATE access_tokens
		SET revoked = TRUE,
		    revoked_reason = COALESCE(revoked_reason, $2),
		    revoked_at = COALESCE(revoked_at, now()),
		    updated_at = now()
		WHERE token = $1
		RETURNING token
	`

	var token string
	if err := r.pool.QueryRow(ctx, query, tokenString, reason).Scan(&token); err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// ListBySubscriber retrieves tokens issued to a subscriber (paginated)
func (r *TokenRepositoryImpl) ListBySubscriber(ctx context.Context, subscriberID string, limit, offset int) ([]*models.AccessToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM access_tokens
		WHERE subscriber_id = $1
		ORDER BY issued_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, subscriberID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}

	return scanTokenRows(rows)
}

// DeleteExpiredBefore removes tokens whose expiry is older than the cutoff.
// Retention hygiene only; expiry itself is a derived check, never a sweep.
func (r *TokenRepositoryImpl) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM access_tokens WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
