package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// ActionClient represents a single connected storefront page.
type ActionClient struct {
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte
}

// NewActionClient wraps an upgraded connection.
func NewActionClient(conn *websocket.Conn, userID string) *ActionClient {
	return &ActionClient{Conn: conn, UserID: userID, Send: make(chan []byte, sendBuffer)}
}

// ActionHub manages connected clients per visitor.
type ActionHub struct {
	userClients map[string]map[*ActionClient]bool
	register    chan *ActionClient
	unregister  chan *ActionClient
	logger      *logging.ChanneledLogger
	mu          sync.RWMutex
	done        chan struct{}
}

// NewActionHub creates a new hub. Run must be started before clients register.
func NewActionHub(logger *logging.ChanneledLogger) *ActionHub {
	return &ActionHub{
		userClients: make(map[string]map[*ActionClient]bool),
		register:    make(chan *ActionClient),
		unregister:  make(chan *ActionClient),
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then closes every client.
func (h *ActionHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.userClients[client.UserID]; !ok {
				h.userClients[client.UserID] = make(map[*ActionClient]bool)
			}
			h.userClients[client.UserID][client] = true
			h.mu.Unlock()
			h.logger.Realtime().Debug("Action client registered", "user", logging.MaskIdentifier(client.UserID))

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.userClients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.userClients, userID)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *ActionHub) remove(client *ActionClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.userClients[client.UserID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.userClients, client.UserID)
			}
		}
	}
	h.logger.Realtime().Debug("Action client unregistered", "user", logging.MaskIdentifier(client.UserID))
}

// Register queues a client for registration.
func (h *ActionHub) Register(client *ActionClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister queues a client for unregistration.
func (h *ActionHub) Unregister(client *ActionClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ConnectionCount returns the number of live connections for a visitor.
func (h *ActionHub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID])
}

// Dispatch implements ActionDispatcher. Slow clients drop the frame.
func (h *ActionHub) Dispatch(userID string, msg ActionMessage) int {
	if msg.Type == "" {
		msg.Type = "ai_action"
	}
	if msg.SentAt == 0 {
		msg.SentAt = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Realtime().Error("Failed to encode action message", "error", err.Error())
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for client := range h.userClients[userID] {
		select {
		case client.Send <- payload:
			delivered++
		default:
			h.logger.Realtime().Warn("Dropping action for slow client", "user", logging.MaskIdentifier(userID))
		}
	}
	return delivered
}

// ServeClient registers client and pumps frames until either side closes.
// It blocks for the lifetime of the connection.
func (h *ActionHub) ServeClient(client *ActionClient) {
	if !h.Register(client) {
		client.Conn.Close()
		return
	}
	go h.writePump(client)
	h.readPump(client)
}

// readPump only exists to process control frames and detect disconnects.
func (h *ActionHub) readPump(client *ActionClient) {
	defer func() {
		h.Unregister(client)
		client.Conn.Close()
	}()
	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ActionHub) writePump(client *ActionClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
