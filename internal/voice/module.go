// Package voice provides the voice-call bounded context module.
// This file defines the module that encapsulates setup and route registration.
package voice

import (
	apphttp "github.com/Keiracom/Agency-OS-sub001/internal/http"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"
	"github.com/Keiracom/Agency-OS-sub001/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the voice bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *Handler
}

// NewModule creates and initializes the voice module with all its dependencies.
func NewModule(pool *pgxpool.Pool, enqueuer RetryEnqueuer, val *validator.Validator, log *logger.Logger) *Module {
	repo := New(pool)
	service := NewService(repo, enqueuer, log)
	handler := NewHandler(service, val)

	return &Module{
		service: service,
		handler: handler,
	}
}

// Service exposes outcome handling for non-HTTP callers.
func (m *Module) Service() *Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "voice"
}

// RegisterRoutes mounts voice routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Provider callbacks (webhook token auth, no JWT)
	ctx.Webhooks.POST("/voice/outcomes", m.handler.HandleCallOutcome)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
