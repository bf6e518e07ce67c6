package api

import (
	"alcyxob/checkin-scheduler/internal/service"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP status codes.
func respondError(c *gin.Context, err error, fallback string) {
	var quotaErr *service.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"code":      "quota_exceeded",
			"limit":     quotaErr.Limit,
			"used":      quotaErr.Used,
			"remaining": 0,
			"resetsOn":  quotaErr.ResetsOn(),
		})
	case errors.Is(err, service.ErrSlotUnavailable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "slot_unavailable"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_transition"})
	case errors.Is(err, service.ErrInvalidSlot):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_slot"})
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrNotesTooLong):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCheckInNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrNoSubscription):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), fallback, "error", err, "path", c.Request.URL.Path)
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
