// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/application/container"
	"github.com/AtRiskMedia/intentstack/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/intentstack/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware(config.AllowedOrigins))

	// Initialize handlers
	eventHandlers := handlers.NewEventHandlers(container.EventService, container.Logger, container.PerfTracker)
	personaHandlers := handlers.NewPersonaHandlers(container.PersonaService, container.TriggerService, container.Logger, container.PerfTracker)
	assistantHandlers := handlers.NewAssistantHandlers(container.DecisionService, container.Logger, container.PerfTracker)
	leadHandlers := handlers.NewLeadHandlers(container.LeadService, container.Logger, container.PerfTracker)
	streamHandlers := handlers.NewActionStreamHandlers(container.ActionHub, config.AllowedOrigins, container.Logger)
	adminHandlers := handlers.NewAdminHandlers(handlers.AdminDeps{
		AdminService:    container.AdminService,
		PersonaService:  container.PersonaService,
		LeadService:     container.LeadService,
		SecurityService: container.SecurityService,
		ActionLogs:      container.ActionLogs,
		TokenTTL:        config.AdminTokenTTL,
	}, container.Logger, container.PerfTracker)

	r.GET("/health", func(c *gin.Context) {
		if err := container.DB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ai": container.AIClient.Configured()})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/events", eventHandlers.PostEvent)
		api.POST("/events/batch", eventHandlers.PostEventBatch)

		api.GET("/persona/:userId", personaHandlers.GetPersona)
		api.GET("/trigger/:userId", personaHandlers.GetTrigger)

		api.POST("/assistant/decision", assistantHandlers.PostDecision)
		api.POST("/assistant/voice", assistantHandlers.PostVoice)
		api.POST("/assistant/proactive", assistantHandlers.PostProactive)

		api.POST("/leads/score", leadHandlers.PostScore)
		api.POST("/leads", leadHandlers.PostLead)
	}

	r.GET("/ws/actions/:userId", streamHandlers.GetActionStream)

	adminAPI := r.Group("/api/admin")
	{
		adminAPI.POST("/login", adminHandlers.PostLogin)

		// Admin authenticated endpoints
		authed := adminAPI.Group("", middleware.AdminAuth(container.AdminService))
		{
			authed.DELETE("/persona/:userId", adminHandlers.DeletePersona)
			authed.GET("/actions/:userId", adminHandlers.GetActions)
			authed.GET("/leads", adminHandlers.GetLeads)
			authed.POST("/blocks", adminHandlers.PostBlock)
			authed.DELETE("/blocks/:userId", adminHandlers.DeleteBlock)
			authed.GET("/stats", adminHandlers.GetStats)
		}
	}

	return r
}
