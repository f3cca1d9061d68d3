package campaigns

import (
	"net/http"

	"github.com/Keiracom/Agency-OS-sub001/internal/sequence"
	"github.com/Keiracom/Agency-OS-sub001/platform/httpkit"
	"github.com/Keiracom/Agency-OS-sub001/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest    = "invalid request body"
	errValidation        = "validation error"
	errInvalidCampaignID = "invalid campaign ID"
)

// Handler handles campaign HTTP requests.
type Handler struct {
	service *Service
	repo    *Repository
	val     *validator.Validator
}

// NewHandler creates a new campaigns handler.
func NewHandler(service *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{service: service, repo: repo, val: val}
}

// SegmentRequest is one industry slice of a multi-segment profile.
type SegmentRequest struct {
	Industry   string `json:"industry" validate:"required,min=1,max=100"`
	Allocation int    `json:"allocation" validate:"required,min=1,max=100"`
}

// CreateCampaignRequest is the request body for creating a campaign.
type CreateCampaignRequest struct {
	Name       string           `json:"name" validate:"required,min=1,max=200"`
	Industry   string           `json:"industry" validate:"max=100"`
	Segments   []SegmentRequest `json:"segments" validate:"max=3,dive"`
	Persona    string           `json:"persona" validate:"max=100"`
	CompanyMin int              `json:"companyMin" validate:"min=0"`
	CompanyMax int              `json:"companyMax" validate:"min=0"`
	Channels   []string         `json:"channels" validate:"required,min=1,dive,oneof=email sms social voice mail"`
	Aggressive bool             `json:"aggressive"`
	LeadBudget int              `json:"leadBudget" validate:"required,min=1,max=100000"`
}

// CampaignResponse is the API representation of a campaign.
type CampaignResponse struct {
	ID         uuid.UUID              `json:"id"`
	Name       string                 `json:"name"`
	Status     string                 `json:"status"`
	Profile    sequence.TargetProfile `json:"profile"`
	Channels   []string               `json:"channels"`
	Aggressive bool                   `json:"aggressive"`
	LeadBudget int                    `json:"leadBudget"`
}

// HandleCreateCampaign creates a draft campaign.
// POST /api/v1/campaigns
func (h *Handler) HandleCreateCampaign(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no tenant context", nil)
		return
	}

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	profile := sequence.TargetProfile{
		Industry:   req.Industry,
		Persona:    req.Persona,
		CompanyMin: req.CompanyMin,
		CompanyMax: req.CompanyMax,
	}
	for _, seg := range req.Segments {
		profile.Segments = append(profile.Segments, sequence.Segment{
			Industry:   seg.Industry,
			Allocation: seg.Allocation,
		})
	}
	// Reject malformed segment allocations at the door rather than at activation.
	if _, err := sequence.SplitSegments(profile); httpkit.HandleError(c, err) {
		return
	}

	channels := make([]sequence.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		channel, ok := sequence.ParseChannel(raw)
		if !ok {
			httpkit.Error(c, http.StatusBadRequest, "unknown channel", raw)
			return
		}
		channels = append(channels, channel)
	}

	created, err := h.repo.Create(c.Request.Context(), Campaign{
		TenantID:   tenantID,
		Name:       req.Name,
		Status:     StatusDraft,
		Profile:    profile,
		Channels:   channels,
		Aggressive: req.Aggressive,
		LeadBudget: req.LeadBudget,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, toCampaignResponse(created))
}

// HandleGetCampaign returns one campaign.
// GET /api/v1/campaigns/:campaignId
func (h *Handler) HandleGetCampaign(c *gin.Context) {
	tenantID, campaignID, ok := h.campaignScope(c)
	if !ok {
		return
	}

	campaign, err := h.repo.GetByID(c.Request.Context(), campaignID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, toCampaignResponse(campaign))
}

// HandleActivateCampaign plans sequences for the campaign's leads and
// schedules their first touches.
// POST /api/v1/campaigns/:campaignId/activate
func (h *Handler) HandleActivateCampaign(c *gin.Context) {
	tenantID, campaignID, ok := h.campaignScope(c)
	if !ok {
		return
	}

	planned, err := h.service.Activate(c.Request.Context(), campaignID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(StatusActive), "plannedLeads": planned})
}

func (h *Handler) campaignScope(c *gin.Context) (tenantID, campaignID uuid.UUID, ok bool) {
	tenantID, ok = httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no tenant context", nil)
		return uuid.Nil, uuid.Nil, false
	}

	campaignID, err := uuid.Parse(c.Param("campaignId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidCampaignID, nil)
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, campaignID, true
}

func toCampaignResponse(campaign Campaign) CampaignResponse {
	channels := make([]string, 0, len(campaign.Channels))
	for _, channel := range campaign.Channels {
		channels = append(channels, string(channel))
	}
	return CampaignResponse{
		ID:         campaign.ID,
		Name:       campaign.Name,
		Status:     string(campaign.Status),
		Profile:    campaign.Profile,
		Channels:   channels,
		Aggressive: campaign.Aggressive,
		LeadBudget: campaign.LeadBudget,
	}
}
