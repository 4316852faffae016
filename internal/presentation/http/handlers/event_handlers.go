package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/application/services"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/performance"
)

const maxBatchEvents = 100

// EventHandlers ingests storefront interaction events
type EventHandlers struct {
	eventService *services.EventService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewEventHandlers creates event handlers with injected dependencies
func NewEventHandlers(eventService *services.EventService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EventHandlers {
	return &EventHandlers{
		eventService: eventService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// PostEvent handles POST /api/v1/events
func (h *EventHandlers) PostEvent(c *gin.Context) {
	start := time.Now()
	var req services.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Events().Warn("Event request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	marker := h.perfTracker.StartOperation("post_event_request", req.UserIdentifier)
	defer h.perfTracker.CompleteOperation(marker)

	res, err := h.eventService.RecordEvent(c.Request.Context(), req)
	if err != nil {
		marker.SetError(err)
		c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
		return
	}

	h.logger.Perf().Debug("Performance for PostEvent request", "duration", time.Since(start), "stored", res.Stored)
	c.JSON(http.StatusAccepted, res)
}

// PostEventBatch handles POST /api/v1/events/batch
func (h *EventHandlers) PostEventBatch(c *gin.Context) {
	start := time.Now()
	var req struct {
		Events []services.EventInput `json:"events" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if len(req.Events) > maxBatchEvents {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many events in batch"})
		return
	}

	marker := h.perfTracker.StartOperation("post_event_batch_request", "")
	defer h.perfTracker.CompleteOperation(marker)
	marker.AddMetadata("events", len(req.Events))

	results := h.eventService.RecordBatch(c.Request.Context(), req.Events)
	accepted := 0
	for _, r := range results {
		if r != nil {
			accepted++
		}
	}

	h.logger.Events().Info("Event batch processed", "received", len(req.Events), "accepted", accepted, "duration", time.Since(start))
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted, "results": results})
}
