// Package followups provides the follow-up reminders bounded context module.
package followups

import (
	"crm_backend/internal/events"
	"crm_backend/internal/followups/handler"
	"crm_backend/internal/followups/repository"
	"crm_backend/internal/followups/service"
	apphttp "crm_backend/internal/http"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the follow-ups bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the follow-up stack. reminders may be nil.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, reminders service.ReminderScheduler, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), eventBus, reminders, log)
	return &Module{handler: handler.New(svc, val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "followups"
}

// RegisterRoutes mounts follow-up routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.API.Group("/follow-ups"))
}

var _ apphttp.Module = (*Module)(nil)
