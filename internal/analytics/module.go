// Package analytics exposes read-only lead and follow-up aggregates.
package analytics

import (
	"crm_backend/internal/analytics/handler"
	"crm_backend/internal/analytics/repository"
	"crm_backend/internal/analytics/service"
	apphttp "crm_backend/internal/http"
	"crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{handler: handler.New(service.New(repository.New(pool)), log)}
}

func (m *Module) Name() string {
	return "analytics"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.API.Group("/analytics"))
}

var _ apphttp.Module = (*Module)(nil)
