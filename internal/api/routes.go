package api

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	bookingService service.BookingService,
	slotService service.SlotService,
	quotaService service.QuotaService,
	notesService service.NotesService,
	purgeService service.PurgeService,
) {
	checkInHandler := NewCheckInHandler(bookingService)
	availabilityHandler := NewAvailabilityHandler(slotService, quotaService)
	notesHandler := NewNotesHandler(notesService)
	adminHandler := NewAdminHandler(purgeService)

	authMiddleware := AuthMiddleware(jwtSecret)
	staffOnly := RoleMiddleware(domain.RoleCoach, domain.RoleAdmin)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			actor, ok := actorFromContext(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": actor.ID, "role": actor.Role})
		})

		protected.GET("/slots", availabilityHandler.GetOpenSlots)
		protected.GET("/quota", availabilityHandler.GetMyQuota)
		protected.GET("/clients/:clientId/quota", staffOnly, availabilityHandler.GetClientQuota)

		checkInGroup := protected.Group("/checkins")
		{
			checkInGroup.GET("", checkInHandler.ListCheckIns)
			checkInGroup.POST("", checkInHandler.ScheduleCheckIn)
			checkInGroup.GET("/:id", checkInHandler.GetCheckIn)
			checkInGroup.POST("/:id/cancel", checkInHandler.CancelCheckIn)
			checkInGroup.POST("/:id/reschedule", checkInHandler.RescheduleCheckIn)
			// Session-completion trigger from the coach's tooling
			checkInGroup.POST("/:id/complete", staffOnly, checkInHandler.CompleteCheckIn)

			checkInGroup.GET("/:id/notes", notesHandler.GetNotes)
			checkInGroup.PUT("/:id/notes/client", notesHandler.UpdateClientNotes)
			checkInGroup.PUT("/:id/notes/coach", staffOnly, notesHandler.UpdateCoachNotes)
		}

		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.POST("/checkins/purge", adminHandler.PurgeCheckIns)
		}
	}
}
