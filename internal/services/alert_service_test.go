package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAlertService_Raise_PersistsAlert(t *testing.T) {
	var stored *models.SuspiciousAlert
	mockRepo := &MockAlertRepository{
		CreateFunc: func(ctx context.Context, alert *models.SuspiciousAlert) (*models.SuspiciousAlert, error) {
			created := *alert
			created.ID = uuid.New()
			stored = &created
			return &created, nil
		},
	}

	svc := NewAlertService(mockRepo, nil, slog.Default())

	alert, err := svc.Raise(context.Background(), "sub-1", "tok-1",
		models.AlertTypeDeviceMismatch, models.SeverityCritical,
		"access attempt from a different device",
		models.AlertForensics{"ip": "203.0.113.10"})

	assert.NoError(t, err)
	assert.NotNil(t, alert)
	assert.NotNil(t, stored)
	assert.Equal(t, models.AlertTypeDeviceMismatch, stored.AlertType)
	assert.Equal(t, "203.0.113.10", stored.Forensics["ip"])
}

func TestAlertService_Raise_PersistFailureReturned(t *testing.T) {
	mockRepo := &MockAlertRepository{
		CreateFunc: func(ctx context.Context, alert *models.SuspiciousAlert) (*models.SuspiciousAlert, error) {
			return nil, models.ErrInternalServer
		},
	}

	svc := NewAlertService(mockRepo, nil, slog.Default())

	alert, err := svc.Raise(context.Background(), "sub-1", "tok-1",
		models.AlertTypeMultipleIPs, models.SeverityHigh, "test", nil)

	assert.Error(t, err)
	assert.Nil(t, alert)
}

func TestAlertService_Raise_NotifiesOnHighSeverity(t *testing.T) {
	notifier := &MockAlertNotifier{}
	svc := NewAlertService(&MockAlertRepository{}, notifier, slog.Default())

	_, err := svc.Raise(context.Background(), "sub-1", "tok-1",
		models.AlertTypeMultipleIPs, models.SeverityHigh, "test", nil)

	assert.NoError(t, err)
	assert.Len(t, notifier.Notified, 1)
}

func TestAlertService_Raise_NoNotificationBelowHigh(t *testing.T) {
	notifier := &MockAlertNotifier{}
	svc := NewAlertService(&MockAlertRepository{}, notifier, slog.Default())

	_, err := svc.Raise(context.Background(), "sub-1", "tok-1",
		models.AlertTypeCaptureAttempt, models.SeverityMedium, "test", nil)

	assert.NoError(t, err)
	assert.Empty(t, notifier.Notified)
}

func TestAlertService_Raise_NotifierFailureDoesNotFailRaise(t *testing.T) {
	notifier := &MockAlertNotifier{
		NotifyAlertFunc: func(ctx context.Context, alert *models.SuspiciousAlert) error {
			return models.ErrInternalServer
		},
	}
	svc := NewAlertService(&MockAlertRepository{}, notifier, slog.Default())

	alert, err := svc.Raise(context.Background(), "sub-1", "tok-1",
		models.AlertTypeDeviceMismatch, models.SeverityCritical, "test", nil)

	assert.NoError(t, err)
	assert.NotNil(t, alert)
}

func TestAlertService_Resolve_Success(t *testing.T) {
	id := uuid.New()
	var resolvedWith string
	mockRepo := &MockAlertRepository{
		ResolveFunc: func(ctx context.Context, gotID uuid.UUID, operatorID, action string) error {
			assert.Equal(t, id, gotID)
			resolvedWith = action
			return nil
		},
	}

	svc := NewAlertService(mockRepo, nil, slog.Default())

	err := svc.Resolve(context.Background(), id, "op-1", "token revoked, subscriber contacted")

	assert.NoError(t, err)
	assert.Equal(t, "token revoked, subscriber contacted", resolvedWith)
}

func TestAlertService_Resolve_UnknownAlert(t *testing.T) {
	mockRepo := &MockAlertRepository{
		ResolveFunc: func(ctx context.Context, id uuid.UUID, operatorID, action string) error {
			return models.ErrNotFound
		},
	}

	svc := NewAlertService(mockRepo, nil, slog.Default())

	err := svc.Resolve(context.Background(), uuid.New(), "op-1", "noop")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAlertService_ListUnresolved_RejectsUnknownSeverity(t *testing.T) {
	svc := NewAlertService(&MockAlertRepository{}, nil, slog.Default())

	alerts, err := svc.ListUnresolved(context.Background(), "urgent", 10, 0)

	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.Nil(t, alerts)
}

func TestAlertService_ListUnresolved_ClampsLimit(t *testing.T) {
	var gotLimit int
	mockRepo := &MockAlertRepository{
		ListUnresolvedFunc: func(ctx context.Context, severity string, limit, offset int) ([]*models.SuspiciousAlert, error) {
			gotLimit = limit
			return []*models.SuspiciousAlert{}, nil
		},
	}

	svc := NewAlertService(mockRepo, nil, slog.Default())

	_, err := svc.ListUnresolved(context.Background(), models.SeverityHigh, 9999, 0)

	assert.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
}
