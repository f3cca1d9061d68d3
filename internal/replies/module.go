// Package replies provides the reply-processing bounded context module.
// This file defines the module that encapsulates setup and route registration.
package replies

import (
	"github.com/Keiracom/Agency-OS-sub001/internal/events"
	apphttp "github.com/Keiracom/Agency-OS-sub001/internal/http"
	"github.com/Keiracom/Agency-OS-sub001/platform/logger"
	"github.com/Keiracom/Agency-OS-sub001/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the replies bounded context module implementing http.Module.
type Module struct {
	machine *Machine
	handler *Handler
}

// NewModule creates and initializes the replies module with all its dependencies.
// Classifier may be nil (classification disabled, replies fall back to the
// conservative default intent).
func NewModule(pool *pgxpool.Pool, classifier Classifier, suppressor Suppressor, sequences SequenceControl, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	machine := NewMachine(repo, classifier, suppressor, sequences, eventBus, log)
	handler := NewHandler(machine, repo, val)

	return &Module{
		machine: machine,
		handler: handler,
	}
}

// Machine exposes the state machine for non-HTTP callers (worker handlers).
func (m *Module) Machine() *Machine {
	return m.machine
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "replies"
}

// RegisterRoutes mounts reply routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Provider callbacks (webhook token auth, no JWT)
	ctx.Webhooks.POST("/replies", m.handler.HandleInboundReply)

	// Tenant API (JWT auth)
	ctx.Protected.GET("/leads/:leadId/objections", m.handler.HandleListObjections)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
