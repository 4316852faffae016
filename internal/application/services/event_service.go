package services

import (
	"context"
	"strings"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/domain/failures"
	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

// RecordResult reports what happened to one ingested event.
type RecordResult struct {
	EventID  string               `json:"eventId,omitempty"`
	Stored   bool                 `json:"stored"`
	Deltas   map[persona.Type]int `json:"deltas"`
	Applied  map[persona.Type]int `json:"applied"`
	Intent   string               `json:"intent,omitempty"`
	Category string               `json:"category,omitempty"`
}

// EventInput is one raw interaction as reported by the storefront.
type EventInput struct {
	UserIdentifier string         `json:"userIdentifier"`
	EventType      string         `json:"eventType"`
	ElementClass   string         `json:"elementClass"`
	ElementData    map[string]any `json:"elementData"`
	Timestamp      time.Time      `json:"timestamp"`
}

// EventService records interactions and feeds them to persona scoring.
type EventService struct {
	repo     events.Repository
	rules    *persona.Rules
	personas *PersonaService
	security *SecurityService
	logger   *logging.ChanneledLogger
	now      func() time.Time
}

// NewEventService creates a new event service. security may be nil.
func NewEventService(repo events.Repository, rules *persona.Rules, personas *PersonaService, security *SecurityService, logger *logging.ChanneledLogger) *EventService {
	if rules == nil {
		rules = persona.NewRules(nil)
	}
	return &EventService{repo: repo, rules: rules, personas: personas, security: security, logger: logger, now: time.Now}
}

// RecordEvent stores the event and applies its persona deltas. A missing user
// identifier or a blocked visitor is an error; storage problems degrade to
// Stored=false. Timestamps in the future are clamped to now.
func (s *EventService) RecordEvent(ctx context.Context, in EventInput) (*RecordResult, error) {
	userID := strings.TrimSpace(in.UserIdentifier)
	if userID == "" {
		return nil, failures.Validation("record_event", "user identifier is required")
	}
	if s.security.IsBlocked(ctx, userID) {
		s.logger.Auth().Warn("Blocked visitor event rejected", "user", logging.MaskIdentifier(userID))
		return nil, failures.Blocked("record_event")
	}

	now := s.now().UTC()
	ts := in.Timestamp.UTC()
	if in.Timestamp.IsZero() || ts.After(now) {
		ts = now
	}
	event := &events.InteractionEvent{
		UserIdentifier: userID,
		EventType:      events.ParseEventType(in.EventType),
		ElementClass:   in.ElementClass,
		ElementData:    in.ElementData,
		Timestamp:      ts,
	}

	result := &RecordResult{Applied: map[persona.Type]int{}}
	if err := s.repo.Store(ctx, event); err != nil {
		s.logger.LogError(logging.ChannelEvents, "store_event", failures.Storage("record_event", err), map[string]any{
			"user":      logging.MaskIdentifier(userID),
			"eventType": event.EventType,
		})
	} else {
		result.Stored = true
		result.EventID = event.ID
	}

	scored := s.rules.ScoreEvent(event.EventType, event.ElementClass, event.ElementData)
	result.Deltas = scored.Deltas
	result.Intent = scored.Intent
	result.Category = scored.Category

	for _, t := range persona.AllTypes {
		delta, ok := scored.Deltas[t]
		if !ok {
			continue
		}
		if s.personas.AddScore(ctx, userID, t, delta) {
			result.Applied[t] = delta
		}
	}

	s.logger.Events().Debug("Interaction recorded",
		"user", logging.MaskIdentifier(userID),
		"eventType", event.EventType,
		"stored", result.Stored,
		"personas", len(result.Applied))
	return result, nil
}

// RecordBatch records events in order. Events failing validation are
// reported as nil entries and do not stop the batch.
func (s *EventService) RecordBatch(ctx context.Context, inputs []EventInput) []*RecordResult {
	out := make([]*RecordResult, len(inputs))
	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		res, err := s.RecordEvent(ctx, in)
		if err != nil {
			s.logger.Events().Warn("Skipping invalid event in batch", "index", i, "error", err.Error())
			continue
		}
		out[i] = res
	}
	return out
}

// PurgeOlderThan removes events older than the retention period.
func (s *EventService) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	n, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, failures.Storage("purge_events", err)
	}
	s.logger.Events().Info("Old interaction events purged", "deleted", n, "cutoff", cutoff)
	return n, nil
}
