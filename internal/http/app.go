// Package http holds the pieces shared by the router and the domain modules.
package http

import (
	"context"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"
)

// HealthChecker is satisfied by *pgxpool.Pool.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what cmd/api hands to the router.
type App struct {
	Config  config.HTTPConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
