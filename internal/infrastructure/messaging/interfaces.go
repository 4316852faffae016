// Package messaging pushes assistant UI actions to connected storefront pages.
package messaging

import "github.com/AtRiskMedia/intentstack/internal/domain/decision"

// ActionDispatcher delivers a validated UI action to a visitor's live pages.
// Delivery is best effort; it reports how many connections received it.
type ActionDispatcher interface {
	Dispatch(userID string, msg ActionMessage) int
}

// ActionMessage is the JSON frame sent over the socket.
type ActionMessage struct {
	Type     string              `json:"type"`
	Action   decision.ActionType `json:"action"`
	Target   string              `json:"target,omitempty"`
	Data     map[string]any      `json:"data,omitempty"`
	Response string              `json:"response,omitempty"`
	SentAt   int64               `json:"sentAt"`
}
