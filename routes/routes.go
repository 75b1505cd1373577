package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"concierge/config"
	"concierge/handlers"
)

// RegisterRoutes wires the widget API onto the router.
func RegisterRoutes(r *gin.Engine, ah *handlers.AssistantHandler) {
	r.Use(corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/assistant")
	{
		api.POST("/conversations", ah.StartConversation)
		api.GET("/conversations/:id", ah.GetConversation)
		api.POST("/conversations/:id/messages", ah.SubmitMessage)
		api.POST("/conversations/:id/diagram", ah.AnswerDiagram)
		api.POST("/conversations/:id/reset", ah.ResetConversation)

		// Booking wizard sub-flow.
		api.POST("/conversations/:id/booking/input", ah.BookingInput)
		api.POST("/conversations/:id/booking/back", ah.BookingBack)
		api.POST("/conversations/:id/booking/calendar", ah.BookingCalendar)
		api.POST("/conversations/:id/booking/confirm", ah.BookingConfirm)

		// Voice capture: text returned to the client, never auto-submitted.
		api.POST("/transcribe", handlers.TranscribeHandler)
	}
}

func corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	origins := strings.Split(config.AppConfig.CORSAllowedOrigins, ",")
	if len(origins) == 1 && strings.TrimSpace(origins[0]) == "*" {
		cfg.AllowAllOrigins = true
	} else {
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
