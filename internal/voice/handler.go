package voice

import (
	"net/http"

	"github.com/Keiracom/Agency-OS-sub001/platform/httpkit"
	"github.com/Keiracom/Agency-OS-sub001/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles voice provider callbacks.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new voice handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// CallOutcomeRequest is a provider callback reporting how a call ended.
type CallOutcomeRequest struct {
	LeadID     uuid.UUID `json:"leadId" validate:"required"`
	CampaignID uuid.UUID `json:"campaignId" validate:"required"`
	Outcome    string    `json:"outcome" validate:"required"`
}

// HandleCallOutcome records a call outcome and schedules a retry when the
// outcome warrants one.
// POST /api/v1/webhooks/voice/outcomes
func (h *Handler) HandleCallOutcome(c *gin.Context) {
	var req CallOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	decision, err := h.service.HandleOutcome(c.Request.Context(), req.LeadID, req.CampaignID, req.Outcome)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, decision)
}
