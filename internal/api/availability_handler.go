package api

import (
	"alcyxob/checkin-scheduler/internal/schedule"
	"alcyxob/checkin-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AvailabilityHandler serves the read side of the booking UI: open slots and remaining quota.
type AvailabilityHandler struct {
	slotService  service.SlotService
	quotaService service.QuotaService
}

func NewAvailabilityHandler(slotService service.SlotService, quotaService service.QuotaService) *AvailabilityHandler {
	return &AvailabilityHandler{slotService: slotService, quotaService: quotaService}
}

type OpenSlotsResponse struct {
	Date  schedule.Date        `json:"date"`
	Slots []schedule.TimeOfDay `json:"slots"`
}

// GetOpenSlots lists free grid slots for ?date=YYYY-MM-DD.
// @Router /slots [get]
func (h *AvailabilityHandler) GetOpenSlots(c *gin.Context) {
	d, err := schedule.ParseDate(c.Query("date"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'date' must be YYYY-MM-DD.")
		return
	}

	slots, err := h.slotService.ListOpenSlots(c.Request.Context(), d)
	if err != nil {
		respondError(c, err, "Failed to list open slots.")
		return
	}
	c.JSON(http.StatusOK, OpenSlotsResponse{Date: d, Slots: slots})
}

// GetMyQuota reports the caller's own cycle usage.
// @Router /quota [get]
func (h *AvailabilityHandler) GetMyQuota(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if !actor.IsClient() {
		abortWithError(c, http.StatusBadRequest, "Staff must use /clients/{clientId}/quota.")
		return
	}
	h.writeQuota(c, actor.ID)
}

// GetClientQuota reports a client's cycle usage. Coach/admin only.
// @Router /clients/{clientId}/quota [get]
func (h *AvailabilityHandler) GetClientQuota(c *gin.Context) {
	h.writeQuota(c, c.Param("clientId"))
}

func (h *AvailabilityHandler) writeQuota(c *gin.Context, clientID string) {
	summary, err := h.quotaService.Summary(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err, "Failed to compute quota.")
		return
	}
	c.JSON(http.StatusOK, summary)
}
