package repositories

import (
	"context"
	"testing"

	"github.com/hwainwright/gatefold/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDBAlert(t *testing.T, repo AlertRepository) *models.SuspiciousAlert {
	t.Helper()

	alert, err := repo.Create(context.Background(), &models.SuspiciousAlert{
		SubscriberID: "sub-1",
		Token:        "tok-alert",
		AlertType:    models.AlertTypeDeviceMismatch,
		Severity:     models.SeverityCritical,
		Description:  "device fingerprint mismatch on bound token",
		Forensics:    models.AlertForensics{"bound": "fp-aaa", "presented": "fp-bbb"},
	})
	require.NoError(t, err)
	return alert
}

func TestAlertRepository_Resolve_SecondResolveIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	alert := seedDBAlert(t, repo)

	err := repo.Resolve(context.Background(), alert.ID, "op-key-1", "subscriber contacted, link reissued")
	assert.NoError(t, err)

	resolved, err := repo.GetByID(context.Background(), alert.ID)
	require.NoError(t, err)
	require.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
	firstBy := *resolved.ResolvedBy
	firstAt := *resolved.ResolvedAt

	// A second resolve by a different operator neither errors nor rewrites
	// the original resolution
	err = repo.Resolve(context.Background(), alert.ID, "op-key-2", "duplicate handling")
	assert.NoError(t, err)

	again, err := repo.GetByID(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.True(t, again.Resolved)
	assert.Equal(t, firstBy, *again.ResolvedBy)
	assert.Equal(t, firstAt.UTC(), again.ResolvedAt.UTC())
}

func TestAlertRepository_Resolve_UnknownAlert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	seedDBAlert(t, repo)

	err := repo.Resolve(context.Background(), uuid.New(), "op-key-1", "noop")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAlertRepository_ListUnresolved_ExcludesResolved(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	first := seedDBAlert(t, repo)
	second := seedDBAlert(t, repo)

	require.NoError(t, repo.Resolve(context.Background(), first.ID, "op-key-1", "handled"))

	open, err := repo.ListUnresolved(context.Background(), "", 50, 0)
	assert.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
}

func TestAlertRepository_DeleteResolvedOlderThan_KeepsOpenAlerts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	resolved := seedDBAlert(t, repo)
	seedDBAlert(t, repo)

	require.NoError(t, repo.Resolve(context.Background(), resolved.ID, "op-key-1", "handled"))

	// Retention of zero days prunes everything resolved, open alerts survive
	deleted, err := repo.DeleteResolvedOlderThan(context.Background(), 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	open, err := repo.ListUnresolved(context.Background(), "", 50, 0)
	assert.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = repo.GetByID(context.Background(), resolved.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
