package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/application/services"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/performance"
)

// PersonaHandlers exposes persona resolution and trigger evaluation
type PersonaHandlers struct {
	personaService *services.PersonaService
	triggerService *services.TriggerService
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewPersonaHandlers creates persona handlers with injected dependencies
func NewPersonaHandlers(personaService *services.PersonaService, triggerService *services.TriggerService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *PersonaHandlers {
	return &PersonaHandlers{
		personaService: personaService,
		triggerService: triggerService,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

// GetPersona handles GET /api/v1/persona/:userId
func (h *PersonaHandlers) GetPersona(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	marker := h.perfTracker.StartOperation("get_persona_request", userID)
	defer h.perfTracker.CompleteOperation(marker)

	c.JSON(http.StatusOK, h.personaService.Resolve(c.Request.Context(), userID))
}

// GetTrigger handles GET /api/v1/trigger/:userId
func (h *PersonaHandlers) GetTrigger(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	marker := h.perfTracker.StartOperation("trigger:evaluate", userID)
	defer h.perfTracker.CompleteOperation(marker)

	d := h.triggerService.ShouldTrigger(c.Request.Context(), userID)
	marker.AddMetadata("reason", string(d.Reason))
	c.JSON(http.StatusOK, d)
}
