package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/application/services"
	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/performance"
)

// AssistantHandlers runs assistant decisions
type AssistantHandlers struct {
	decisionService *services.DecisionService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewAssistantHandlers creates assistant handlers with injected dependencies
func NewAssistantHandlers(decisionService *services.DecisionService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AssistantHandlers {
	return &AssistantHandlers{
		decisionService: decisionService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// VoiceRequest is the body of a voice decision.
type VoiceRequest struct {
	decision.UserContext
	AudioURL string `json:"audioUrl" binding:"required"`
	Language string `json:"language"`
}

// resultStatus maps a decision result onto an HTTP status. Upstream and
// invalid-model failures still answer 200 with the fallback message.
func resultStatus(res decision.Result) int {
	switch res.Error {
	case services.ErrorCodeValidation:
		return http.StatusBadRequest
	case services.ErrorCodeBlocked:
		return http.StatusForbidden
	case services.ErrorCodeReentrant:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

// PostDecision handles POST /api/v1/assistant/decision
func (h *AssistantHandlers) PostDecision(c *gin.Context) {
	start := time.Now()
	var req decision.UserContext
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, decision.Result{Error: services.ErrorCodeValidation, Message: services.MessageInvalidRequest})
		return
	}

	marker := h.perfTracker.StartOperation("ai:decision", req.UserIdentifier)
	defer h.perfTracker.CompleteOperation(marker)

	res := h.decisionService.GenerateDecision(c.Request.Context(), req)
	marker.SetSuccess(res.Success)

	h.logger.Perf().Info("Performance for PostDecision request", "duration", time.Since(start), "success", res.Success)
	c.JSON(resultStatus(res), res)
}

// PostVoice handles POST /api/v1/assistant/voice
func (h *AssistantHandlers) PostVoice(c *gin.Context) {
	start := time.Now()
	var req VoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, decision.Result{Error: services.ErrorCodeValidation, Message: services.MessageInvalidRequest})
		return
	}

	marker := h.perfTracker.StartOperation("ai:voice_decision", req.UserIdentifier)
	defer h.perfTracker.CompleteOperation(marker)

	res := h.decisionService.GenerateVoiceDecision(c.Request.Context(), req.UserContext, req.AudioURL, req.Language)
	marker.SetSuccess(res.Success)

	h.logger.Perf().Info("Performance for PostVoice request", "duration", time.Since(start), "success", res.Success)
	c.JSON(resultStatus(res), res)
}

// PostProactive handles POST /api/v1/assistant/proactive
func (h *AssistantHandlers) PostProactive(c *gin.Context) {
	var req decision.UserContext
	if err := c.ShouldBindJSON(&req); err != nil || req.UserIdentifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userIdentifier is required"})
		return
	}

	marker := h.perfTracker.StartOperation("ai:proactive", req.UserIdentifier)
	defer h.perfTracker.CompleteOperation(marker)

	trigger, res := h.decisionService.Proactive(c.Request.Context(), req)
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"trigger": trigger})
		return
	}
	marker.SetSuccess(res.Success)
	if res.Error == services.ErrorCodeBlocked {
		c.JSON(http.StatusForbidden, gin.H{"decision": res})
		return
	}
	c.JSON(resultStatus(*res), gin.H{"trigger": trigger, "decision": res})
}
