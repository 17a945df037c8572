// Package notification wires the notification outbox, the dispatch processor
// and its HTTP trigger.
package notification

import (
	"fmt"

	"medtour_backend/internal/email"
	apphttp "medtour_backend/internal/http"
	"medtour_backend/internal/notification/dispatch"
	"medtour_backend/internal/notification/handler"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/notification/templates"
	"medtour_backend/internal/whatsapp"
	"medtour_backend/platform/config"
	"medtour_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is everything the dispatch pipeline reads.
type Config interface {
	config.NotificationConfig
	config.EmailConfig
	config.WhatsAppConfig
	GetOrganizationName() string
}

// NewProcessor builds the dispatch processor over the outbox table with the
// configured email and WhatsApp channels.
func NewProcessor(pool *pgxpool.Pool, cfg Config, log *logger.Logger) (*dispatch.Processor, error) {
	catalog, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("load notification templates: %w", err)
	}

	var chat dispatch.WhatsAppSender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		chat = client
	} else {
		log.Info("whatsapp channel disabled")
	}
	if !cfg.GetEmailEnabled() {
		log.Info("email channel disabled")
	}

	return dispatch.NewProcessor(
		outbox.New(pool),
		dispatch.NewRecipientRepository(pool),
		catalog,
		email.NewSender(cfg),
		chat,
		dispatch.Options{
			BatchSize:        cfg.GetNotificationBatchSize(),
			Concurrency:      cfg.GetNotificationConcurrency(),
			MaxAttempts:      cfg.GetNotificationMaxAttempts(),
			OrganizationName: cfg.GetOrganizationName(),
			AppBaseURL:       cfg.GetAppBaseURL(),
		},
		log,
	), nil
}

// Module represents the notification module.
type Module struct {
	handler   *handler.Handler
	processor *dispatch.Processor
}

func NewModule(processor *dispatch.Processor) *Module {
	return &Module{
		handler:   handler.New(processor),
		processor: processor,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "notifications"
}

// Processor returns the dispatch processor.
func (m *Module) Processor() *dispatch.Processor {
	return m.processor
}

// RegisterRoutes mounts the processing trigger behind the cron secret.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/notifications", ctx.Internal))
}

var _ apphttp.Module = (*Module)(nil)
