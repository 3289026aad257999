package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mirelio/echodesk/internal/api/handlers"
)

type Deps struct {
	Feedback *handlers.FeedbackHandler
	Audio    *handlers.AudioHandler
	Live     *handlers.LiveHandler
	Health   *handlers.HealthHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", d.Health.Check)

	api := r.Group("/api/v1")

	api.POST("/feedback", d.Feedback.Submit)
	api.GET("/feedback", d.Feedback.List)
	api.GET("/feedback/:id", d.Feedback.Get)
	api.GET("/feedback/:id/trace", d.Feedback.Trace)

	api.GET("/dashboard/stats", d.Feedback.DashboardStats)

	api.GET("/audio/:audio_id", d.Audio.Stream)

	// live event surfaces: SSE for browsers, WS for native clients
	api.GET("/events", d.Live.Events)
	api.GET("/ws", d.Live.WS)
}
