package replies

import (
	"net/http"
	"time"

	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/httpkit"
	"github.com/Keiracom/Agency-OS-sub001/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
)

// Handler handles inbound reply webhooks from channel providers.
type Handler struct {
	machine *Machine
	repo    *Repository
	val     *validator.Validator
}

// NewHandler creates a new replies handler.
func NewHandler(machine *Machine, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{machine: machine, repo: repo, val: val}
}

// InboundReplyRequest is a provider callback carrying one reply.
type InboundReplyRequest struct {
	LeadID     uuid.UUID  `json:"leadId" validate:"required"`
	TenantID   uuid.UUID  `json:"tenantId" validate:"required"`
	Channel    string     `json:"channel" validate:"required"`
	Address    string     `json:"address" validate:"required,max=320"`
	Subject    string     `json:"subject" validate:"max=500"`
	Body       string     `json:"body" validate:"required,max=100000"`
	ReceivedAt *time.Time `json:"receivedAt"`
}

// InboundReplyResponse reports what the reply did to the lead.
type InboundReplyResponse struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	LeadStatus string   `json:"leadStatus"`
	Outcome    string   `json:"threadOutcome"`
	Actions    []string `json:"actions"`
}

// HandleInboundReply processes one provider-delivered reply.
// POST /api/v1/webhooks/replies
func (h *Handler) HandleInboundReply(c *gin.Context) {
	var req InboundReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	channel, ok := sequence.ParseChannel(req.Channel)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "unknown channel", req.Channel)
		return
	}

	receivedAt := time.Now().UTC()
	if req.ReceivedAt != nil {
		receivedAt = req.ReceivedAt.UTC()
	}

	result, err := h.machine.OnReply(c.Request.Context(), IncomingMessage{
		LeadID:     req.LeadID,
		TenantID:   req.TenantID,
		Channel:    channel,
		Address:    req.Address,
		Subject:    req.Subject,
		Body:       req.Body,
		ReceivedAt: receivedAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, InboundReplyResponse{
		Intent:     string(result.Intent),
		Confidence: result.Confidence,
		LeadStatus: string(result.StatusAfter),
		Outcome:    string(result.OutcomeAfter),
		Actions:    result.Actions,
	})
}

// HandleListObjections returns the objection history for a lead.
// GET /api/v1/leads/:leadId/objections
func (h *Handler) HandleListObjections(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no tenant context", nil)
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead ID", nil)
		return
	}

	objections, err := h.repo.ListObjections(c.Request.Context(), leadID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"objections": objections})
}
