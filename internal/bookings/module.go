// Package bookings provides the booking module.
package bookings

import (
	"medtour_backend/internal/bookings/handler"
	"medtour_backend/internal/bookings/repository"
	"medtour_backend/internal/bookings/service"
	apphttp "medtour_backend/internal/http"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the bookings domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new bookings module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg service.Config, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), cfg, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "bookings"
}

// Service returns the service layer; the quotes module creates bookings through it.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/bookings"))
}

var _ apphttp.Module = (*Module)(nil)
