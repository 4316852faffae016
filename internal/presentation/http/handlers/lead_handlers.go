package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/application/services"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/performance"
)

// LeadHandlers scores and captures print requests
type LeadHandlers struct {
	leadService *services.LeadService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewLeadHandlers creates lead handlers with injected dependencies
func NewLeadHandlers(leadService *services.LeadService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LeadHandlers {
	return &LeadHandlers{
		leadService: leadService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostScore handles POST /api/v1/leads/score
func (h *LeadHandlers) PostScore(c *gin.Context) {
	var params map[string]any
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	marker := h.perfTracker.StartOperation("lead_score_request", "")
	defer h.perfTracker.CompleteOperation(marker)

	c.JSON(http.StatusOK, h.leadService.Score(leads.ParamsFromMap(params)))
}

// PostLead handles POST /api/v1/leads
func (h *LeadHandlers) PostLead(c *gin.Context) {
	var req services.LeadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	marker := h.perfTracker.StartOperation("lead_capture_request", req.UserIdentifier)
	defer h.perfTracker.CompleteOperation(marker)

	lead, err := h.leadService.Capture(c.Request.Context(), req)
	if err != nil {
		marker.SetError(err)
		h.logger.Leads().Warn("Lead capture failed", "error", err.Error())
		c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       lead.ID,
		"score":    lead.Score,
		"status":   lead.Status,
		"notified": lead.Notified,
	})
}
