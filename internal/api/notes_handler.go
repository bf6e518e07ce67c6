package api

import (
	"alcyxob/checkin-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type NotesHandler struct {
	notesService service.NotesService
}

func NewNotesHandler(notesService service.NotesService) *NotesHandler {
	return &NotesHandler{notesService: notesService}
}

type UpdateClientNotesRequest struct {
	ClientNotes string `json:"clientNotes"`
}

// UpdateCoachNotesRequest leaves absent fields untouched.
type UpdateCoachNotesRequest struct {
	CoachNotes *string `json:"coachNotes"`
	Feedback   *string `json:"feedback"`
}

// GetNotes godoc
// @Router /checkins/{id}/notes [get]
func (h *NotesHandler) GetNotes(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	notes, err := h.notesService.GetNotes(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve notes.")
		return
	}
	c.JSON(http.StatusOK, notes)
}

// UpdateClientNotes godoc
// @Router /checkins/{id}/notes/client [put]
func (h *NotesHandler) UpdateClientNotes(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req UpdateClientNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	notes, err := h.notesService.UpdateClientNotes(c.Request.Context(), actor, c.Param("id"), req.ClientNotes)
	if err != nil {
		respondError(c, err, "Failed to update client notes.")
		return
	}
	c.JSON(http.StatusOK, notes)
}

// UpdateCoachNotes godoc
// @Router /checkins/{id}/notes/coach [put]
func (h *NotesHandler) UpdateCoachNotes(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req UpdateCoachNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	notes, err := h.notesService.UpdateCoachNotes(c.Request.Context(), actor, c.Param("id"), req.CoachNotes, req.Feedback)
	if err != nil {
		respondError(c, err, "Failed to update coach notes.")
		return
	}
	c.JSON(http.StatusOK, notes)
}
