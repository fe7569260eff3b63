package repositories

import (
	"context"
	"fmt"

	"github.com/hwainwright/gatefold/internal/database"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const alertColumns = `id, subscriber_id, token, alert_type, severity, description,
	forensics, resolved, resolved_by, resolution_action, resolved_at, created_at`

// AlertRepository handles suspicious-alert persistence. Writes are append-only
// except for the one-way resolve transition.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.SuspiciousAlert) (*models.SuspiciousAlert, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SuspiciousAlert, error)
	ListUnresolved(ctx context.Context, severity string, limit, offset int) ([]*models.SuspiciousAlert, error)
	ListByToken(ctx context.Context, tokenString string, limit, offset int) ([]*models.SuspiciousAlert, error)
	Resolve(ctx context.Context, id uuid.UUID, operatorID, action string) error
	DeleteResolvedOlderThan(ctx context.Context, days int) (int64, error)
}

// AlertRepositoryImpl implements AlertRepository on postgres
type AlertRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) AlertRepository {
	return &AlertRepositoryImpl{pool: db.Pool}
}

func scanAlertRow(scanner rowScanner) (*models.SuspiciousAlert, error) {
	var a models.SuspiciousAlert

	err := scanner.Scan(
		&a.ID, &a.SubscriberID, &a.Token, &a.AlertType, &a.Severity, &a.Description,
		&a.Forensics, &a.Resolved, &a.ResolvedBy, &a.ResolutionAction, &a.ResolvedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &a, nil
}

func scanAlertRows(rows pgx.Rows) ([]*models.SuspiciousAlert, error) {
	defer rows.Close()

	alerts := make([]*models.SuspiciousAlert, 0)

	for rows.Next() {
		alert, err := scanAlertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}

// Create appends a new alert and returns the stored row
func (r *AlertRepositoryImpl) Create(ctx context.Context, alert *models.SuspiciousAlert) (*models.SuspiciousAlert, error) {
	query := `
		INSERT INTO suspicious_alerts (subscriber_id, token, alert_type, severity, description, forensics)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + alertColumns

	result, err := scanAlertRow(r.pool.QueryRow(
		ctx, query,
		alert.SubscriberID, alert.Token, alert.AlertType, alert.Severity,
		alert.Description, alert.Forensics,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	return result, nil
}

// GetByID retrieves a single alert
func (r *AlertRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.SuspiciousAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM suspicious_alerts WHERE id = $1`

	return scanAlertRow(r.pool.QueryRow(ctx, query, id))
}

// ListUnresolved retrieves open alerts, optionally filtered by severity
func (r *AlertRepositoryImpl) ListUnresolved(ctx context.Context, severity string, limit, offset int) ([]*models.SuspiciousAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM suspicious_alerts
		WHERE NOT resolved AND ($1 = '' OR severity = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, severity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved alerts: %w", err)
	}

	return scanAlertRows(rows)
}

// ListByToken retrieves all alerts referencing a token
func (r *AlertRepositoryImpl) ListByToken(ctx context.Context, tokenString string, limit, offset int) ([]*models.SuspiciousAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM suspicious_alerts
		WHERE token = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, tokenString, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts by token: %w", err)
	}

	return scanAlertRows(rows)
}

// Resolve flips an alert to resolved. The WHERE clause makes the transition
// one-way: resolving an already-resolved alert matches no row and leaves its
// original resolution untouched.
func (r *AlertRepositoryImpl) Resolve(ctx context.Context, id uuid.UUID, operatorID, action string) error {
	query := `
		UPDATE suspicious_alerts
		SET resolved = TRUE, resolved_by = $2, resolution_action = $3, resolved_at = now()
		WHERE id = $1 AND NOT resolved
	`

	result, err := r.pool.Exec(ctx, query, id, operatorID, action)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		// Either unknown or already resolved; disambiguate for the caller
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// DeleteResolvedOlderThan prunes resolved alerts past the retention window
func (r *AlertRepositoryImpl) DeleteResolvedOlderThan(ctx context.Context, days int) (int64, error) {
	query := `
		DELETE FROM suspicious_alerts
		WHERE resolved AND resolved_at < CURRENT_TIMESTAMP - INTERVAL '1 day' * $1
	`

	result, err := r.pool.Exec(ctx, query, days)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup alerts: %w", err)
	}

	return result.RowsAffected(), nil
}
