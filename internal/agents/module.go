// Package agents provides the agent bounded context module.
package agents

import (
	"crm_backend/internal/agents/handler"
	"crm_backend/internal/agents/repository"
	"crm_backend/internal/agents/service"
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/phone"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the agents bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the agent repository, service and handler.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.LeadsConfig, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, phone.NewNormalizer(cfg.GetPhoneDefaultRegion()), log)
	return &Module{handler: handler.New(svc, val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agents"
}

// RegisterRoutes mounts agent routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.API.Group("/agents"))
}

var _ apphttp.Module = (*Module)(nil)
