package scheduler

import (
	"context"
	"fmt"

	"medtour_backend/platform/config"
	"medtour_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// NotificationProcessor delivers one notification row.
type NotificationProcessor interface {
	ProcessOne(ctx context.Context, id uuid.UUID) error
}

// QuoteExpirer moves stale SENT quotes to EXPIRED.
type QuoteExpirer interface {
	ExpireStaleQuotes(ctx context.Context) (int64, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor NotificationProcessor
	quotes    QuoteExpirer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor NotificationProcessor, quotes QuoteExpirer, log *logger.Logger) (*Worker, error) {
	opt, err := redisOptFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(processor, quotes, log)
	w.server = server
	return w, nil
}

func newWorker(processor NotificationProcessor, quotes QuoteExpirer, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:       mux,
		processor: processor,
		quotes:    quotes,
		log:       log,
	}

	mux.HandleFunc(TaskNotificationDispatch, w.handleNotificationDispatch)
	mux.HandleFunc(TaskQuotesExpire, w.handleQuotesExpire)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationDispatchPayload(task)
	if err != nil {
		return fmt.Errorf("decode dispatch payload: %v: %w", err, asynq.SkipRetry)
	}

	id, err := uuid.Parse(payload.NotificationID)
	if err != nil {
		return fmt.Errorf("invalid notification id %q: %w", payload.NotificationID, asynq.SkipRetry)
	}

	return w.processor.ProcessOne(ctx, id)
}

func (w *Worker) handleQuotesExpire(ctx context.Context, _ *asynq.Task) error {
	n, err := w.quotes.ExpireStaleQuotes(ctx)
	if err != nil {
		return err
	}
	w.log.Debug("quote expiry sweep finished", "expired", n)
	return nil
}
