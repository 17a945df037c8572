// Package journeys provides the journey state machine module.
package journeys

import (
	"medtour_backend/internal/eventlog"
	apphttp "medtour_backend/internal/http"
	"medtour_backend/internal/journeys/assignment"
	"medtour_backend/internal/journeys/handler"
	"medtour_backend/internal/journeys/repository"
	"medtour_backend/internal/journeys/service"
	"medtour_backend/internal/journeys/transport"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the journeys domain module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	assigner *assignment.Service
}

// NewModule creates a new journeys module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventlog.New(pool), log)
	assigner := assignment.New(repo, log)

	if err := transport.RegisterValidations(val); err != nil {
		log.Error("failed to register journey validations", "error", err)
	}

	return &Module{
		handler:  handler.New(svc, assigner, val),
		service:  svc,
		assigner: assigner,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "journeys"
}

// Service returns the state machine for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/journeys"))
}

var _ apphttp.Module = (*Module)(nil)
