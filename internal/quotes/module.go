// Package quotes provides the quote lifecycle module.
package quotes

import (
	apphttp "medtour_backend/internal/http"
	"medtour_backend/internal/quotes/handler"
	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/service"
	"medtour_backend/platform/config"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new quotes module with all dependencies wired. The
// booking creator, PDF store and content lookup are injected afterwards via
// Service().
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg config.QuoteConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
