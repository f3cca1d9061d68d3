// Package campaigns provides the campaign bounded context module.
// This file defines the module that encapsulates setup and route registration.
package campaigns

import (
	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	apphttp "github.com/Keiracom/Agency-OS-sub001/internal/http"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"
	"github.com/Keiracom/Agency-OS-sub001/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the campaigns bounded context module implementing http.Module.
type Module struct {
	service *Service
	repo    *Repository
	handler *Handler
}

// NewModule creates and initializes the campaigns module with all its dependencies.
func NewModule(pool *pgxpool.Pool, leadSource LeadSource, enqueuer TouchEnqueuer, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, leadSource, enqueuer, eventBus, log)
	handler := NewHandler(service, repo, val)

	return &Module{
		service: service,
		repo:    repo,
		handler: handler,
	}
}

// Repository exposes the campaign store for cross-module wiring (the reply
// state machine stops and delays sequences through it).
func (m *Module) Repository() *Repository {
	return m.repo
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "campaigns"
}

// RegisterRoutes mounts campaign routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/campaigns")
	group.POST("", m.handler.HandleCreateCampaign)
	group.GET("/:campaignId", m.handler.HandleGetCampaign)
	group.POST("/:campaignId/activate", m.handler.HandleActivateCampaign)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
