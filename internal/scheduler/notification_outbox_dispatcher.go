package scheduler

import (
	"context"
	"time"

	"medtour_backend/internal/notification/outbox"
	"medtour_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultDispatchInterval = 2 * time.Second
	dispatchBatchSize       = 50
	staleAfter              = 10 * time.Minute
	reapEvery               = 30
	enqueueRetryDelay       = 30 * time.Second
)

// OutboxQueue is the claim side of the notification outbox.
type OutboxQueue interface {
	ClaimPending(ctx context.Context, limit int, to outbox.Status) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, reason *string, availableAt time.Time) error
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// DispatchEnqueuer hands a claimed row to the asynq worker.
type DispatchEnqueuer interface {
	EnqueueNotificationDispatch(ctx context.Context, notificationID uuid.UUID) error
}

// NotificationOutboxDispatcher polls the outbox, moves due rows to enqueued and
// publishes one notification:dispatch task per row.
type NotificationOutboxDispatcher struct {
	queue    OutboxQueue
	enqueuer DispatchEnqueuer
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewNotificationOutboxDispatcher(queue OutboxQueue, enqueuer DispatchEnqueuer, interval time.Duration, log *logger.Logger) *NotificationOutboxDispatcher {
	if interval <= 0 {
		interval = defaultDispatchInterval
	}
	return &NotificationOutboxDispatcher{
		queue:    queue,
		enqueuer: enqueuer,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.queue == nil || d.enqueuer == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if tick%reapEvery == 0 {
			d.releaseStale(ctx)
		}
		d.dispatchOnce(ctx)
	}
}

// dispatchOnce returns the number of rows handed to the worker.
func (d *NotificationOutboxDispatcher) dispatchOnce(ctx context.Context) int {
	records, err := d.queue.ClaimPending(ctx, dispatchBatchSize, outbox.StatusEnqueued)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		if err := d.enqueuer.EnqueueNotificationDispatch(ctx, rec.ID); err != nil {
			msg := err.Error()
			if markErr := d.queue.MarkPending(ctx, rec.ID, &msg, d.now().UTC().Add(enqueueRetryDelay)); markErr != nil {
				d.log.Warn("outbox release failed", "notification_id", rec.ID, "error", markErr)
			}
			continue
		}
		enqueued++
	}
	return enqueued
}

func (d *NotificationOutboxDispatcher) releaseStale(ctx context.Context) {
	n, err := d.queue.ReleaseStale(ctx, staleAfter)
	if err != nil {
		d.log.Warn("outbox stale release failed", "error", err)
		return
	}
	if n > 0 {
		d.log.Info("released stale notifications", "count", n)
	}
}
