// Package seats provides the seat-health bounded context module.
// This file defines the module that encapsulates setup and route registration.
package seats

import (
	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	apphttp "github.com/Keiracom/Agency-OS-sub001/internal/http"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the seats bounded context module implementing http.Module.
type Module struct {
	monitor *Monitor
	repo    *Repository
	handler *Handler
}

// NewModule creates and initializes the seats module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	repo := New(pool)
	monitor := NewMonitor(repo, eventBus, log)
	handler := NewHandler(monitor, repo)

	return &Module{
		monitor: monitor,
		repo:    repo,
		handler: handler,
	}
}

// Monitor exposes the health monitor for the scheduler's refresh sweeps.
func (m *Module) Monitor() *Monitor {
	return m.monitor
}

// Repository exposes the seat store for the dispatch gate.
func (m *Module) Repository() *Repository {
	return m.repo
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "seats"
}

// RegisterRoutes mounts seat routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Tenant API (JWT auth)
	group := ctx.Protected.Group("/seats")
	group.GET("/:seatId/health", m.handler.HandleGetHealth)
	group.DELETE("/:seatId/restriction", m.handler.HandleResetRestriction)

	// Provider restriction signal (webhook token auth, no JWT)
	ctx.Webhooks.POST("/seats/:seatId/restriction", m.handler.HandleRestrictionSignal)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
