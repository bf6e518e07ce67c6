package api

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/schedule"
	"alcyxob/checkin-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CheckInHandler struct {
	bookingService service.BookingService
}

func NewCheckInHandler(bookingService service.BookingService) *CheckInHandler {
	return &CheckInHandler{bookingService: bookingService}
}

// --- DTOs ---

type ScheduleCheckInRequest struct {
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD in the operating offset
	Time        string `json:"time" binding:"required"` // HH:MM, on the slot grid
	SessionType string `json:"sessionType"`
	ClientNotes string `json:"clientNotes"`
	ClientID    string `json:"clientId"` // Coach/admin booking on behalf of a client
}

type RescheduleCheckInRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// parseSlot turns the wire date and time into schedule values, aborting with 400 on bad input.
func parseSlot(c *gin.Context, rawDate, rawTime string) (schedule.Date, schedule.TimeOfDay, bool) {
	d, err := schedule.ParseDate(rawDate)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD.")
		return schedule.Date{}, 0, false
	}
	tod, err := schedule.ParseTimeOfDay(rawTime)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid time, expected HH:MM.")
		return schedule.Date{}, 0, false
	}
	return d, tod, true
}

// --- Handler Methods ---

// ScheduleCheckIn books a slot.
// @Router /checkins [post]
func (h *CheckInHandler) ScheduleCheckIn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req ScheduleCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	d, tod, ok := parseSlot(c, req.Date, req.Time)
	if !ok {
		return
	}

	checkIn, err := h.bookingService.Schedule(c.Request.Context(), actor, service.ScheduleRequest{
		ClientID:    req.ClientID,
		Date:        d,
		Time:        tod,
		SessionType: domain.SessionType(req.SessionType),
		ClientNotes: req.ClientNotes,
	})
	if err != nil {
		respondError(c, err, "Failed to schedule check-in.")
		return
	}

	c.JSON(http.StatusCreated, checkIn)
}

// ListCheckIns returns check-ins visible to the caller.
// Query: clientId, from, to (YYYY-MM-DD, inclusive), status.
// @Router /checkins [get]
func (h *CheckInHandler) ListCheckIns(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filter := service.ListFilter{
		ClientID: c.Query("clientId"),
		Status:   domain.CheckInStatus(c.Query("status")),
	}
	for param, target := range map[string]**schedule.Date{"from": &filter.From, "to": &filter.To} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		d, err := schedule.ParseDate(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid '"+param+"' date, expected YYYY-MM-DD.")
			return
		}
		*target = &d
	}

	checkIns, err := h.bookingService.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err, "Failed to list check-ins.")
		return
	}

	c.JSON(http.StatusOK, checkIns)
}

// GetCheckIn godoc
// @Router /checkins/{id} [get]
func (h *CheckInHandler) GetCheckIn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	checkIn, err := h.bookingService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve check-in.")
		return
	}
	c.JSON(http.StatusOK, checkIn)
}

// CancelCheckIn frees the slot and the quota unit.
// @Router /checkins/{id}/cancel [post]
func (h *CheckInHandler) CancelCheckIn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	checkIn, err := h.bookingService.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel check-in.")
		return
	}
	c.JSON(http.StatusOK, checkIn)
}

// RescheduleCheckIn moves a scheduled check-in to a new slot.
// @Router /checkins/{id}/reschedule [post]
func (h *CheckInHandler) RescheduleCheckIn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req RescheduleCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	d, tod, ok := parseSlot(c, req.Date, req.Time)
	if !ok {
		return
	}

	result, err := h.bookingService.Reschedule(c.Request.Context(), actor, c.Param("id"), d, tod)
	if err != nil {
		respondError(c, err, "Failed to reschedule check-in.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteCheckIn is the session-completion trigger. Coach/admin only.
// @Router /checkins/{id}/complete [post]
func (h *CheckInHandler) CompleteCheckIn(c *gin.Context) {
	checkIn, err := h.bookingService.MarkCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to complete check-in.")
		return
	}
	c.JSON(http.StatusOK, checkIn)
}
