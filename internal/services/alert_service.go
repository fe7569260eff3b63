package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/hwainwright/gatefold/internal/repositories"
	pkglogger "github.com/hwainwright/gatefold/pkg/logger"
	"github.com/google/uuid"
)

// AlertNotifier pushes a freshly raised alert to an out-of-band channel
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert *models.SuspiciousAlert) error
}

// AlertService is the suspicious-activity recorder: append-only raise, one-way
// resolve, operator listings. Duplicate alerts for repeated abuse are expected
// and not deduplicated.
type AlertService struct {
	repo     repositories.AlertRepository
	notifier AlertNotifier // nil disables out-of-band notification
	logger   *slog.Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(repo repositories.AlertRepository, notifier AlertNotifier, logger *slog.Logger) *AlertService {
	return &AlertService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Raise records a new alert. The database write is the authority: a failed
// persist is returned to the caller, never swallowed. Notification is
// best-effort on top of a successful persist.
func (s *AlertService) Raise(ctx context.Context, subscriberID, tokenString, alertType, severity, description string, forensics models.AlertForensics) (*models.SuspiciousAlert, error) {
	alert := &models.SuspiciousAlert{
		SubscriberID: subscriberID,
		Token:        tokenString,
		AlertType:    alertType,
		Severity:     severity,
		Description:  description,
		Forensics:    forensics,
	}

	// Dual-write: immediate slog output
	s.logger.WarnContext(ctx, "suspicious activity",
		slog.String("alert_type", alertType),
		slog.String("severity", severity),
		slog.String("subscriber_id", subscriberID),
		slog.String("token", pkglogger.TruncatedToken(tokenString)),
		slog.String("description", description),
	)

	created, err := s.repo.Create(ctx, alert)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist alert",
			slog.String("alert_type", alertType),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to record alert: %w", err)
	}

	if s.notifier != nil && (severity == models.SeverityHigh || severity == models.SeverityCritical) {
		if err := s.notifier.NotifyAlert(ctx, created); err != nil {
			s.logger.ErrorContext(ctx, "failed to notify operators",
				slog.String("alert_id", created.ID.String()),
				slog.Any("error", err),
			)
		}
	}

	return created, nil
}

// Resolve marks an alert resolved. Resolving an already-resolved alert is a
// no-op, not an error; the original resolution is preserved.
func (s *AlertService) Resolve(ctx context.Context, id uuid.UUID, operatorID, action string) error {
	if err := s.repo.Resolve(ctx, id, operatorID, action); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "alert resolved",
		slog.String("alert_id", id.String()),
		slog.String("operator_id", operatorID),
		slog.String("action", action),
	)

	return nil
}

// ListUnresolved retrieves open alerts for operator tooling, optionally
// filtered by severity
func (s *AlertService) ListUnresolved(ctx context.Context, severity string, limit, offset int) ([]*models.SuspiciousAlert, error) {
	if severity != "" && !models.ValidSeverity(severity) {
		return nil, models.ErrBadRequest
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	alerts, err := s.repo.ListUnresolved(ctx, severity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved alerts: %w", err)
	}

	return alerts, nil
}

// ListByToken retrieves the alert history referencing a token
func (s *AlertService) ListByToken(ctx context.Context, tokenString string, limit, offset int) ([]*models.SuspiciousAlert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	alerts, err := s.repo.ListByToken(ctx, tokenString, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts by token: %w", err)
	}

	return alerts, nil
}
