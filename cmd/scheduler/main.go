package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medtour_backend/internal/content"
	"medtour_backend/internal/notification"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/quotes"
	"medtour_backend/internal/scheduler"
	"medtour_backend/platform/config"
	"medtour_backend/platform/db"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/startup"
	"medtour_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := startup.Retry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	processor, err := notification.NewProcessor(pool, cfg, log)
	if err != nil {
		log.Error("failed to initialize notification processor", "error", err)
		panic("failed to initialize notification processor: " + err.Error())
	}
	processor.SetContentLookup(initContent(pool, cfg, log))

	// Worker-side quote wiring for the expiry sweep (no HTTP handlers required).
	quotesModule := quotes.NewModule(pool, validator.New(), cfg, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewNotificationOutboxDispatcher(outbox.New(pool), client, cfg.GetOutboxDispatchInterval(), log)
	go dispatcher.Run(ctx)

	sweep, err := scheduler.NewQuoteExpirySweep(cfg, log)
	if err != nil {
		log.Error("failed to initialize quote expiry sweep", "error", err)
		panic("failed to initialize quote expiry sweep: " + err.Error())
	}
	go sweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, processor, quotesModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func initContent(pool *pgxpool.Pool, cfg config.ContentCacheConfig, log *logger.Logger) *content.Service {
	repo := content.NewRepository(pool)
	rdb, err := content.NewRedisClient(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to initialize content cache; continuing without it", "error", err)
		return content.NewService(repo, nil, log)
	}
	return content.NewService(repo, content.NewCache(rdb, cfg.GetContentCacheTTL()), log)
}
