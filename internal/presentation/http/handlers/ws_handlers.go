package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

// ActionStreamHandlers upgrades storefront pages to the live action socket
type ActionStreamHandlers struct {
	hub      *messaging.ActionHub
	upgrader websocket.Upgrader
	logger   *logging.ChanneledLogger
}

// NewActionStreamHandlers creates websocket handlers. Only the listed origins
// may connect; an empty list accepts same-host pages only.
func NewActionStreamHandlers(hub *messaging.ActionHub, allowedOrigins []string, logger *logging.ChanneledLogger) *ActionStreamHandlers {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return &ActionStreamHandlers{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

// GetActionStream handles GET /ws/actions/:userId
func (h *ActionStreamHandlers) GetActionStream(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Realtime().Warn("Websocket upgrade failed", "user", logging.MaskIdentifier(userID), "error", err.Error())
		return
	}
	h.logger.Realtime().Info("Action stream connected", "user", logging.MaskIdentifier(userID))
	h.hub.ServeClient(messaging.NewActionClient(conn, userID))
}
