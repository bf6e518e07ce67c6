package api

import (
	"alcyxob/checkin-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	purgeService service.PurgeService
}

func NewAdminHandler(purgeService service.PurgeService) *AdminHandler {
	return &AdminHandler{purgeService: purgeService}
}

type PurgeCheckInsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// PurgeCheckIns hard-deletes check-ins and reports per-item results.
// @Router /admin/checkins/purge [post]
func (h *AdminHandler) PurgeCheckIns(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req PurgeCheckInsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	report, err := h.purgeService.Purge(c.Request.Context(), actor, req.IDs)
	if err != nil {
		respondError(c, err, "Failed to purge check-ins.")
		return
	}
	c.JSON(http.StatusOK, report)
}
