package scheduler

import (
	"context"
	"time"

	"leadinbox_backend/platform/logger"
)

const (
	defaultCleanupInterval    = time.Hour
	defaultSucceededRetention = 7 * 24 * time.Hour
	defaultFailedRetention    = 30 * 24 * time.Hour
)

// FinishedDeleter removes terminal outbox rows past a cutoff.
type FinishedDeleter interface {
	DeleteFinishedBefore(ctx context.Context, succeededBefore, failedBefore time.Time) (int64, error)
}

// ResponseOutboxCleanup periodically removes old finished outbox rows.
// Failed rows stick around longer than succeeded ones so an operator can
// still see what went wrong.
type ResponseOutboxCleanup struct {
	deleter            FinishedDeleter
	log                *logger.Logger
	interval           time.Duration
	succeededRetention time.Duration
	failedRetention    time.Duration
}

func NewResponseOutboxCleanup(deleter FinishedDeleter, log *logger.Logger, interval, succeededRetention, failedRetention time.Duration) *ResponseOutboxCleanup {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	if succeededRetention <= 0 {
		succeededRetention = defaultSucceededRetention
	}
	if failedRetention <= 0 {
		failedRetention = defaultFailedRetention
	}

	return &ResponseOutboxCleanup{
		deleter:            deleter,
		log:                log,
		interval:           interval,
		succeededRetention: succeededRetention,
		failedRetention:    failedRetention,
	}
}

func (c *ResponseOutboxCleanup) Run(ctx context.Context) {
	if c == nil || c.deleter == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *ResponseOutboxCleanup) cleanup(ctx context.Context) {
	now := time.Now()
	succeededBefore := now.Add(-c.succeededRetention)
	failedBefore := now.Add(-c.failedRetention)

	deleted, err := c.deleter.DeleteFinishedBefore(ctx, succeededBefore, failedBefore)
	if err != nil {
		c.log.Warn("outbox cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("outbox cleanup removed finished rows", "deleted", deleted)
	}
}
