package app

import (
	"context"
	"time"

	"github.com/the-flip/core/internal/models"
	pkgcron "github.com/the-flip/core/internal/pkg/cron"
	"go.uber.org/zap"
)

const (
	webhookEventRetention = 30 * 24 * time.Hour
	finishedTaskRetention = 7 * 24 * time.Hour
	activityRetention     = 90 * 24 * time.Hour
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	log := a.logger.Named("cron")

	a.sched.Register(pkgcron.Job{
		Name:        "purge_webhook_events",
		Description: "Delete webhook delivery logs older than 30 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := a.webhooks.PurgeEventsBefore(time.Now().Add(-webhookEventRetention))
			if err != nil {
				log.Warn("purge webhook events failed", zap.Error(err))
				return err
			}
			if n > 0 {
				log.Info("purged webhook events", zap.Int64("deleted", n))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "requeue_stuck_transcodes",
		Description: "Re-enqueue videos stuck in the processing state",
		Interval:    15 * time.Minute,
		Fn: func(ctx context.Context) error {
			n, err := a.media.RequeueStuck(ctx)
			if err != nil {
				log.Warn("requeue stuck transcodes failed", zap.Error(err))
				return err
			}
			if n > 0 {
				log.Info("requeued stuck transcodes", zap.Int64("count", n))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "sweep_orphan_media",
		Description: "Delete attachments whose report or log entry is gone",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := a.media.SweepOrphans()
			if err != nil {
				log.Warn("orphan media sweep failed", zap.Error(err))
				return err
			}
			if n > 0 {
				log.Info("swept orphan media", zap.Int64("deleted", n))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_activities",
		Description: "Delete staff activity rows older than 90 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-activityRetention)
			result := a.db.Unscoped().Where("created_at < ?", cutoff).Delete(&models.ActivityModel{})
			if result.Error != nil {
				log.Warn("activity cleanup failed", zap.Error(result.Error))
				return result.Error
			}
			if result.RowsAffected > 0 {
				log.Info("cleaned up activities", zap.Int64("deleted", result.RowsAffected))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_finished_tasks",
		Description: "Drop completed queue tasks older than 7 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-finishedTaskRetention).UnixMilli()
			if err := a.tasks.DeleteCompleted(ctx, cutoff); err != nil {
				log.Warn("task cleanup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
