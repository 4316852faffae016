// Package services orchestrates the pipeline: event ingest and scoring,
// trigger evaluation, context assembly, AI decisions and lead capture.
package services

import (
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/pkg/config"
)

// TriggerSettings are the decision trigger thresholds.
type TriggerSettings struct {
	ScoreThreshold      int
	MinEvents           int
	ActivityWindow      time.Duration
	HighIntentDwellTime int
}

// DecisionSettings tune the assistant call.
type DecisionSettings struct {
	PersonaUpdateDelta  int
	StructuredResponses bool
	SiteName            string
}

// ContextSettings tune context assembly.
type ContextSettings struct {
	TokenBudget          int
	KnowledgeFacts       int
	RecentEvents         int
	ConversationMessages int
	ActivityWindow       time.Duration
}

// LeadSettings tune lead capture.
type LeadSettings struct {
	NotifyThreshold int
}

// TriggerSettingsFromConfig reads the trigger thresholds.
func TriggerSettingsFromConfig() TriggerSettings {
	return TriggerSettings{
		ScoreThreshold:      config.AITriggerThreshold,
		MinEvents:           config.MinEventsCount,
		ActivityWindow:      config.ActivityWindow,
		HighIntentDwellTime: config.HighIntentDwellTime,
	}
}

// ThresholdsFromConfig reads the per-persona confidence thresholds.
func ThresholdsFromConfig() persona.Thresholds {
	return persona.Thresholds{
		persona.Author:         config.PersonaThresholdAuthor,
		persona.Business:       config.PersonaThresholdBusiness,
		persona.Designer:       config.PersonaThresholdDesigner,
		persona.Student:        config.PersonaThresholdStudent,
		persona.General:        config.PersonaThresholdGeneral,
		persona.Publisher:      config.PersonaThresholdPublisher,
		persona.LoyalCustomer:  config.PersonaThresholdLoyalCustomer,
		persona.CasualBrowser:  config.PersonaThresholdCasualBrowser,
		persona.PriceSensitive: config.PersonaThresholdPriceSensitive,
	}
}

// DecisionSettingsFromConfig reads the assistant settings.
func DecisionSettingsFromConfig() DecisionSettings {
	return DecisionSettings{
		PersonaUpdateDelta:  config.PersonaUpdateDelta,
		StructuredResponses: config.AIStructuredResponses,
		SiteName:            config.SiteName,
	}
}

// ContextSettingsFromConfig reads the context assembly budget.
func ContextSettingsFromConfig() ContextSettings {
	return ContextSettings{
		TokenBudget:          config.ContextTokenBudget,
		KnowledgeFacts:       5,
		RecentEvents:         10,
		ConversationMessages: config.ContextConversationMessages,
		ActivityWindow:       config.ActivityWindow,
	}
}

// LeadSettingsFromConfig reads the lead notification threshold.
func LeadSettingsFromConfig() LeadSettings {
	return LeadSettings{NotifyThreshold: config.LeadHotScoreThreshold}
}
