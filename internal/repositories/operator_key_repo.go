package repositories

import (
	"context"
	"time"

	"github.com/hwainwright/gatefold/internal/database"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OperatorKeyRepository handles operator API-key storage
type OperatorKeyRepository interface {
	Create(ctx context.Context, key *models.OperatorKey) error
	GetByID(ctx context.Context, id string) (*models.OperatorKey, error)
	Revoke(ctx context.Context, id string) error
}

// OperatorKeyRepositoryImpl implements OperatorKeyRepository on postgres
type OperatorKeyRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewOperatorKeyRepository creates a new operator key repository
func NewOperatorKeyRepository(db *database.DB) OperatorKeyRepository {
	return &OperatorKeyRepositoryImpl{pool: db.Pool}
}

// Create stores a new operator key
func (r *OperatorKeyRepositoryImpl) Create(ctx context.Context, key *models.OperatorKey) error {
	query := `INSERT INTO operator_keys (id, name, secret_hash) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, key.ID, key.Name, key.SecretHash)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// GetByID retrieves an operator key by its public id half
func (r *OperatorKeyRepositoryImpl) GetByID(ctx context.Context, id string) (*models.OperatorKey, error) {
	query := `SELECT id, name, secret_hash, created_at, revoked_at FROM operator_keys WHERE id = $1`

	var key models.OperatorKey
	var revokedAt *time.Time

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&key.ID, &key.Name, &key.SecretHash, &key.CreatedAt, &revokedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	key.RevokedAt = revokedAt
	return &key, nil
}

// Revoke disables an operator key. Revoking an already-revoked key is a
// no-op; the original revoked_at stands.
func (r *OperatorKeyRepositoryImpl) Revoke(ctx context.Context, id string) error {
	query := `UPDATE operator_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		// Either unknown or already revoked; disambiguate for the caller
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}

	return nil
}
