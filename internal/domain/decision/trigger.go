package decision

import (
	"context"
	"strings"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/commerce"
	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
)

// Reason explains a trigger decision.
type Reason string

const (
	ReasonInsufficientScore    Reason = "insufficient_score"
	ReasonInsufficientActivity Reason = "insufficient_activity"
	ReasonNoHighIntentEvents   Reason = "no_high_intent_events"
	ReasonConditionsMet        Reason = "conditions_met"
)

// TriggerDecision is the outcome of evaluating a visitor for AI invocation.
type TriggerDecision struct {
	Trigger bool            `json:"trigger"`
	Reason  Reason          `json:"reason"`
	Context *TriggerContext `json:"context,omitempty"`
}

// TriggerContext is attached only when every condition holds.
type TriggerContext struct {
	Persona      persona.Dominant   `json:"personaAnalysis"`
	EventSummary EventSummary       `json:"eventSummary"`
	Commerce     *commerce.Snapshot `json:"commerce,omitempty"`
	EvaluatedAt  time.Time          `json:"evaluatedAt"`
}

// EventSummary condenses the activity window.
type EventSummary struct {
	Total           int                      `json:"total"`
	HighIntent      int                      `json:"highIntent"`
	ByType          map[events.EventType]int `json:"byType"`
	LastElementSeen string                   `json:"lastElementSeen,omitempty"`
	Window          time.Duration            `json:"window"`
}

// Summarize counts events by type and high-intent hits.
func Summarize(evts []*events.InteractionEvent, detector IntentDetector, window time.Duration) EventSummary {
	s := EventSummary{ByType: make(map[events.EventType]int), Window: window}
	var latest time.Time
	for _, e := range evts {
		if e == nil {
			continue
		}
		s.Total++
		s.ByType[e.EventType]++
		if detector != nil && detector.IsHighIntent(e) {
			s.HighIntent++
		}
		if !e.Timestamp.Before(latest) {
			latest = e.Timestamp
			s.LastElementSeen = e.ElementClass
		}
	}
	return s
}

// IntentDetector flags events that signal purchase or contact intent.
type IntentDetector interface {
	IsHighIntent(e *events.InteractionEvent) bool
}

// HighIntentKeywords are matched against element class and text.
var HighIntentKeywords = []string{"pricing", "calculator", "add_to_cart", "license", "contact", "checkout"}

// KeywordDetector flags events by keyword or by long module dwell.
type KeywordDetector struct {
	Keywords        []string
	DwellTimeMs     int64
	caseInsensitive bool
}

// NewKeywordDetector builds the default detector.
func NewKeywordDetector(dwellTimeMs int) *KeywordDetector {
	return &KeywordDetector{
		Keywords:        HighIntentKeywords,
		DwellTimeMs:     int64(dwellTimeMs),
		caseInsensitive: true,
	}
}

func (d *KeywordDetector) IsHighIntent(e *events.InteractionEvent) bool {
	if e == nil {
		return false
	}
	if e.EventType == events.EventModuleDwell && e.DwellTime() > d.DwellTimeMs {
		return true
	}
	class, text := e.ElementClass, e.Text()
	if d.caseInsensitive {
		class, text = strings.ToLower(class), strings.ToLower(text)
	}
	for _, kw := range d.Keywords {
		if strings.Contains(class, kw) || strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ActionLog is an audit row for a dispatched UI action.
type ActionLog struct {
	ID             string         `json:"id"`
	UserIdentifier string         `json:"userIdentifier"`
	Action         ActionType     `json:"action"`
	Target         string         `json:"target,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// ActionLogRepository stores dispatched actions.
type ActionLogRepository interface {
	Record(ctx context.Context, entry *ActionLog) error
	FindByUser(ctx context.Context, userID string, limit int) ([]*ActionLog, error)
}

// Role is a conversation participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one stored conversation turn.
type Message struct {
	ID             string    `json:"id"`
	UserIdentifier string    `json:"userIdentifier"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationRepository stores conversation turns per user.
type ConversationRepository interface {
	Append(ctx context.Context, msg *Message) error
	Recent(ctx context.Context, userID string, limit int) ([]*Message, error)
}

// BlockRepository is the visitor block list.
type BlockRepository interface {
	IsBlocked(ctx context.Context, userID string) (bool, error)
	Block(ctx context.Context, userID, reason string) error
	Unblock(ctx context.Context, userID string) error
}

// UserContext is the input to a decision request.
type UserContext struct {
	UserIdentifier  string `json:"userIdentifier"`
	Message         string `json:"message"`
	CurrentPage     string `json:"currentPage,omitempty"`
	CurrentElement  string `json:"currentElement,omitempty"`
	UserRoleContext string `json:"userRoleContext,omitempty"`
}

// Result is the outward shape of a decision request.
type Result struct {
	Success  bool        `json:"success"`
	Response *AIResponse `json:"response,omitempty"`
	Message  string      `json:"message,omitempty"`
	Error    string      `json:"error,omitempty"`
}
