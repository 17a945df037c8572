package scheduler

import (
	"context"
	"time"

	"medtour_backend/platform/config"
	"medtour_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultQuoteExpirySweepInterval = time.Hour

// QuoteExpirySweep registers the periodic quotes:expire task with asynq's
// scheduler. The worker executes it.
type QuoteExpirySweep struct {
	scheduler *asynq.Scheduler
	cronspec  string
	queue     string
	log       *logger.Logger
}

func NewQuoteExpirySweep(cfg config.SchedulerConfig, log *logger.Logger) (*QuoteExpirySweep, error) {
	opt, err := redisOptFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &QuoteExpirySweep{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC}),
		cronspec:  sweepSpec(cfg.GetQuoteExpirySweepInterval()),
		queue:     queueName(cfg),
		log:       log,
	}, nil
}

func sweepSpec(interval time.Duration) string {
	if interval <= 0 {
		interval = defaultQuoteExpirySweepInterval
	}
	return "@every " + interval.String()
}

func (s *QuoteExpirySweep) Run(ctx context.Context) {
	if s == nil || s.scheduler == nil {
		return
	}

	entryID, err := s.scheduler.Register(s.cronspec, NewQuotesExpireTask(),
		asynq.Queue(s.queue), asynq.Unique(time.Minute))
	if err != nil {
		s.log.Error("quote expiry sweep registration failed", "error", err)
		return
	}
	if err := s.scheduler.Start(); err != nil {
		s.log.Error("quote expiry scheduler failed to start", "error", err)
		return
	}
	s.log.Info("quote expiry sweep scheduled", "entry_id", entryID, "spec", s.cronspec)

	<-ctx.Done()
	s.scheduler.Shutdown()
}
