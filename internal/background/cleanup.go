package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/hwainwright/gatefold/internal/repositories"
)

// CleanupManager periodically removes long-expired tokens and aged resolved
// alerts from the database. Expired tokens are kept for the retention period
// before deletion so their alert history stays joinable during review.
type CleanupManager struct {
	tokenRepo     repositories.TokenRepository
	alertRepo     repositories.AlertRepository
	logger        *slog.Logger
	interval      time.Duration
	retentionDays int
	stopCh        chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	tokenRepo repositories.TokenRepository,
	alertRepo repositories.AlertRepository,
	logger *slog.Logger,
	interval time.Duration,
	retentionDays int,
) *CleanupManager {
	return &CleanupManager{
		tokenRepo:     tokenRepo,
		alertRepo:     alertRepo,
		logger:        logger,
		interval:      interval,
		retentionDays: retentionDays,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup prunes expired tokens past retention and aged resolved alerts
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cm.logger.Info("starting retention cleanup")

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -cm.retentionDays)

	tokensDeleted, err := cm.tokenRepo.DeleteExpiredBefore(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
	} else if tokensDeleted > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_deleted", tokensDeleted))
	}

	alertsDeleted, err := cm.alertRepo.DeleteResolvedOlderThan(cleanupCtx, cm.retentionDays)
	if err != nil {
		cm.logger.Error("failed to cleanup resolved alerts", slog.Any("error", err))
	} else if alertsDeleted > 0 {
		cm.logger.Info("resolved alert cleanup completed", slog.Int64("rows_deleted", alertsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
