package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medtour_backend/internal/adapters"
	"medtour_backend/internal/adapters/storage"
	"medtour_backend/internal/bookings"
	"medtour_backend/internal/content"
	apphttp "medtour_backend/internal/http"
	"medtour_backend/internal/http/router"
	"medtour_backend/internal/journeys"
	"medtour_backend/internal/notification"
	"medtour_backend/internal/quotes"
	"medtour_backend/migrations"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := startup.Retry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	val := validator.New()
	contentSvc := initContent(pool, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	journeysModule := journeys.NewModule(pool, val, log)
	quotesModule := quotes.NewModule(pool, val, cfg, log)
	bookingsModule := bookings.NewModule(pool, val, cfg, log)

	// Quote acceptance creates the booking through an adapter so quotes never
	// imports the bookings service directly.
	quotesModule.Service().SetBookingCreator(adapters.NewQuoteBookingCreator(bookingsModule.Service()))
	quotesModule.Service().SetContentLookup(contentSvc)

	if cfg.IsMinIOEnabled() {
		bucket, err := storage.OpenBucket(cfg, cfg.GetMinioBucketQuotePDFs())
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := startup.Retry(ctx, log, "ensure quote-pdfs bucket", 5, 2*time.Second, func() error {
			return bucket.Ensure(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket.Name())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		quotesModule.Service().SetPDFStore(adapters.NewQuotePDFStore(bucket))
		log.Info("storage service initialized", "quotePDFsBucket", bucket.Name())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; quote PDFs are rendered on every request")
	}

	processor, err := notification.NewProcessor(pool, cfg, log)
	if err != nil {
		log.Error("failed to initialize notification processor", "error", err)
		panic("failed to initialize notification processor: " + err.Error())
	}
	processor.SetContentLookup(contentSvc)
	notificationModule := notification.NewModule(processor)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			journeysModule,
			quotesModule,
			bookingsModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initContent returns the reference lookup service, cached in redis when
// REDIS_URL is set.
func initContent(pool *pgxpool.Pool, cfg config.ContentCacheConfig, log *logger.Logger) *content.Service {
	repo := content.NewRepository(pool)
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; content lookups are not cached")
		return content.NewService(repo, nil, log)
	}

	rdb, err := content.NewRedisClient(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to initialize content cache; continuing without it", "error", err)
		return content.NewService(repo, nil, log)
	}
	return content.NewService(repo, content.NewCache(rdb, cfg.GetContentCacheTTL()), log)
}
