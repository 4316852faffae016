package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/intentstack/internal/application/services"
	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/performance"
)

// AdminHandlers serves the authenticated maintenance API
type AdminHandlers struct {
	adminService    *services.AdminAuthService
	personaService  *services.PersonaService
	leadService     *services.LeadService
	securityService *services.SecurityService
	actionLogs      decision.ActionLogRepository
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
	tokenTTL        time.Duration
}

// AdminDeps groups the collaborators of the admin handlers.
type AdminDeps struct {
	AdminService    *services.AdminAuthService
	PersonaService  *services.PersonaService
	LeadService     *services.LeadService
	SecurityService *services.SecurityService
	ActionLogs      decision.ActionLogRepository
	TokenTTL        time.Duration
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(deps AdminDeps, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AdminHandlers {
	return &AdminHandlers{
		adminService:    deps.AdminService,
		personaService:  deps.PersonaService,
		leadService:     deps.LeadService,
		securityService: deps.SecurityService,
		actionLogs:      deps.ActionLogs,
		logger:          logger,
		perfTracker:     perfTracker,
		tokenTTL:        deps.TokenTTL,
	}
}

// PostLogin handles POST /api/admin/login
func (h *AdminHandlers) PostLogin(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	token, err := h.adminService.Login(req.Password)
	switch {
	case errors.Is(err, services.ErrAdminDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.SetCookie("admin_auth", token, int(h.tokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// DeletePersona handles DELETE /api/admin/persona/:userId
func (h *AdminHandlers) DeletePersona(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if !h.personaService.Reset(c.Request.Context(), userID) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to reset persona scores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetActions handles GET /api/admin/actions/:userId
func (h *AdminHandlers) GetActions(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	entries, err := h.actionLogs.FindByUser(c.Request.Context(), userID, limitQuery(c, 50, 500))
	if err != nil {
		h.logger.LogError(logging.ChannelAI, "admin_actions", err, map[string]any{"user": logging.MaskIdentifier(userID)})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load actions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": entries})
}

// GetLeads handles GET /api/admin/leads?status=hot&limit=50
func (h *AdminHandlers) GetLeads(c *gin.Context) {
	status := leads.Status(c.Query("status"))
	switch status {
	case "", leads.StatusHot, leads.StatusWarm, leads.StatusMedium, leads.StatusCold:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	out, err := h.leadService.List(c.Request.Context(), status, limitQuery(c, 50, 500))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": out})
}

// PostBlock handles POST /api/admin/blocks
func (h *AdminHandlers) PostBlock(c *gin.Context) {
	var req struct {
		UserIdentifier string `json:"userIdentifier" binding:"required"`
		Reason         string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if err := h.securityService.Block(c.Request.Context(), req.UserIdentifier, req.Reason); err != nil {
		c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// DeleteBlock handles DELETE /api/admin/blocks/:userId
func (h *AdminHandlers) DeleteBlock(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if err := h.securityService.Unblock(c.Request.Context(), userID); err != nil {
		c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"performance": h.perfTracker.GetOverallStats(),
		"alerts":      h.perfTracker.GetAlerts(),
		"logLevels":   h.logger.GetChannelLevels(),
	})
}
