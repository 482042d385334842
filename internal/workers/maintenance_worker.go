package workers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"nativeai_backend/internal/logger"
	"nativeai_backend/internal/repositories"
)

// MaintenanceWorker runs periodic housekeeping: expired refresh token
// cleanup and a daily usage rollup for operators. Counters are never reset;
// old periods simply stop being addressed once the calendar moves on.
type MaintenanceWorker struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
}

func NewMaintenanceWorker(db *gorm.DB, userRepo repositories.UserRepository) *MaintenanceWorker {
	return &MaintenanceWorker{db: db, userRepo: userRepo}
}

func (w *MaintenanceWorker) Start(ctx context.Context) {
	go w.cleanRefreshTokens(ctx)
	go w.logUsageRollup(ctx)
}

func (w *MaintenanceWorker) cleanRefreshTokens(ctx context.Context) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("maintenance worker stopped", "task", "refresh_token_cleanup")
			return
		case <-ticker.C:
			removed, err := w.userRepo.CleanExpiredRefreshTokens()
			logger.WorkerLog("maintenance", "clean expired refresh tokens", err)
			if err == nil && removed > 0 {
				logger.Info("expired refresh tokens removed", "count", removed)
			}
		}
	}
}

// logUsageRollup emits one aggregate line per day around midnight.
func (w *MaintenanceWorker) logUsageRollup(ctx context.Context) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 5, 0, 0, now.Location())

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("maintenance worker stopped", "task", "usage_rollup")
			return
		case <-timer.C:
		}

		var rollup struct {
			Periods     int64
			TotalTokens int64
		}
		err := w.db.Raw(`
			SELECT COUNT(*) AS periods, COALESCE(SUM(tokens_used), 0) AS total_tokens
			FROM period_usage
		`).Scan(&rollup).Error
		logger.WorkerLog("maintenance", "daily usage rollup", err)
		if err == nil {
			logger.Info("usage rollup",
				"active_periods", rollup.Periods,
				"total_tokens_used", rollup.TotalTokens,
			)
		}
	}
}
