package seats

import (
	"net/http"

	"github.com/Keiracom/Agency-OS-sub001/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const errInvalidSeatID = "invalid seat ID"

// Handler handles seat health HTTP requests.
type Handler struct {
	monitor *Monitor
	repo    *Repository
}

// NewHandler creates a new seats handler.
func NewHandler(monitor *Monitor, repo *Repository) *Handler {
	return &Handler{monitor: monitor, repo: repo}
}

// HandleGetHealth refreshes and returns a seat's health report.
// GET /api/v1/seats/:seatId/health
func (h *Handler) HandleGetHealth(c *gin.Context) {
	seatID, ok := h.tenantSeat(c)
	if !ok {
		return
	}

	report, err := h.monitor.Refresh(c.Request.Context(), seatID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleRestrictionSignal applies a provider restriction to a seat.
// POST /api/v1/webhooks/seats/:seatId/restriction
func (h *Handler) HandleRestrictionSignal(c *gin.Context) {
	seatID, err := uuid.Parse(c.Param("seatId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidSeatID, nil)
		return
	}

	if err := h.monitor.ApplyRestriction(c.Request.Context(), seatID); httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(StatusRestricted)})
}

// HandleResetRestriction manually lifts a seat restriction.
// DELETE /api/v1/seats/:seatId/restriction
func (h *Handler) HandleResetRestriction(c *gin.Context) {
	seatID, ok := h.tenantSeat(c)
	if !ok {
		return
	}

	if err := h.monitor.ResetRestriction(c.Request.Context(), seatID); httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(StatusActive)})
}

// tenantSeat parses the seat ID and checks it belongs to the caller's tenant.
func (h *Handler) tenantSeat(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no tenant context", nil)
		return uuid.Nil, false
	}

	seatID, err := uuid.Parse(c.Param("seatId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidSeatID, nil)
		return uuid.Nil, false
	}

	seat, err := h.repo.GetSeat(c.Request.Context(), seatID)
	if httpkit.HandleError(c, err) {
		return uuid.Nil, false
	}
	if seat.TenantID != tenantID {
		httpkit.Error(c, http.StatusNotFound, "seat not found", nil)
		return uuid.Nil, false
	}

	return seatID, true
}
