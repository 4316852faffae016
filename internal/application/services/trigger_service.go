package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/commerce"
	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

// TriggerService decides whether a visitor is worth a proactive AI call.
type TriggerService struct {
	personas *PersonaService
	events   events.Repository
	commerce commerce.Provider
	detector decision.IntentDetector
	settings TriggerSettings
	logger   *logging.ChanneledLogger
	now      func() time.Time
}

// NewTriggerService creates a new trigger service. The commerce provider is
// optional.
func NewTriggerService(
	personas *PersonaService,
	eventRepo events.Repository,
	provider commerce.Provider,
	settings TriggerSettings,
	logger *logging.ChanneledLogger,
) *TriggerService {
	return &TriggerService{
		personas: personas,
		events:   eventRepo,
		commerce: provider,
		detector: decision.NewKeywordDetector(settings.HighIntentDwellTime),
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// ShouldTrigger evaluates the conditions in order: persona score, activity
// volume, then high intent. The first failing condition names the reason.
func (s *TriggerService) ShouldTrigger(ctx context.Context, userID string) decision.TriggerDecision {
	dominant := s.personas.Resolve(ctx, userID)
	if dominant.Score < s.settings.ScoreThreshold {
		return s.decide(userID, decision.TriggerDecision{Reason: decision.ReasonInsufficientScore})
	}

	now := s.now().UTC()
	recent, err := s.events.FindRecentByUser(ctx, userID, now.Add(-s.settings.ActivityWindow))
	if err != nil {
		s.logger.LogError(logging.ChannelTrigger, "find_recent_events", err, map[string]any{"user": logging.MaskIdentifier(userID)})
		recent = nil
	}
	if len(recent) < s.settings.MinEvents {
		return s.decide(userID, decision.TriggerDecision{Reason: decision.ReasonInsufficientActivity})
	}

	summary := decision.Summarize(recent, s.detector, s.settings.ActivityWindow)
	if summary.HighIntent == 0 {
		return s.decide(userID, decision.TriggerDecision{Reason: decision.ReasonNoHighIntentEvents})
	}

	tc := &decision.TriggerContext{
		Persona:      dominant,
		EventSummary: summary,
		EvaluatedAt:  now,
	}
	if s.commerce != nil {
		snap, err := s.commerce.Snapshot(ctx, userID)
		if err != nil {
			s.logger.LogError(logging.ChannelTrigger, "commerce_snapshot", err, map[string]any{"user": logging.MaskIdentifier(userID)})
		} else if !snap.Empty() {
			tc.Commerce = snap
		}
	}
	return s.decide(userID, decision.TriggerDecision{Trigger: true, Reason: decision.ReasonConditionsMet, Context: tc})
}

func (s *TriggerService) decide(userID string, d decision.TriggerDecision) decision.TriggerDecision {
	s.logger.Trigger().Debug("Trigger evaluated",
		"user", logging.MaskIdentifier(userID),
		"trigger", d.Trigger,
		"reason", d.Reason)
	return d
}
