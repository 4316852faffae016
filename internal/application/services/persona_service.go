package services

import (
	"context"
	"strings"

	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

// PersonaService owns persona scores. Storage failures are logged and
// reported as false so that callers degrade instead of failing.
type PersonaService struct {
	repo       persona.Repository
	thresholds persona.Thresholds
	logger     *logging.ChanneledLogger
}

// NewPersonaService creates a new persona service.
func NewPersonaService(repo persona.Repository, thresholds persona.Thresholds, logger *logging.ChanneledLogger) *PersonaService {
	if thresholds == nil {
		thresholds = persona.DefaultThresholds()
	}
	return &PersonaService{repo: repo, thresholds: thresholds, logger: logger}
}

// AddScore applies a non-negative delta. Negative deltas and unknown types
// are rejected; a zero delta is a successful no-op.
func (s *PersonaService) AddScore(ctx context.Context, userID string, personaType persona.Type, delta int) bool {
	if strings.TrimSpace(userID) == "" {
		s.logger.Persona().Warn("Rejecting score without user identifier", "personaType", personaType)
		return false
	}
	if _, known := persona.ParseType(string(personaType)); !known {
		s.logger.Persona().Warn("Rejecting score for unknown persona", "personaType", personaType)
		return false
	}
	if delta < 0 {
		s.logger.Persona().Warn("Rejecting negative persona delta", "personaType", personaType, "delta", delta)
		return false
	}
	if delta == 0 {
		return true
	}
	if err := s.repo.AddScore(ctx, userID, personaType, delta); err != nil {
		s.logger.LogError(logging.ChannelPersona, "add_score", err, map[string]any{
			"user":        logging.MaskIdentifier(userID),
			"personaType": personaType,
		})
		return false
	}
	return true
}

// GetScores returns the stored scores; storage errors yield an empty map.
func (s *PersonaService) GetScores(ctx context.Context, userID string) map[persona.Type]int {
	scores, err := s.repo.GetScores(ctx, userID)
	if err != nil {
		s.logger.LogError(logging.ChannelPersona, "get_scores", err, map[string]any{"user": logging.MaskIdentifier(userID)})
		return map[persona.Type]int{}
	}
	return scores
}

// Reset clears every score for the user.
func (s *PersonaService) Reset(ctx context.Context, userID string) bool {
	if err := s.repo.Reset(ctx, userID); err != nil {
		s.logger.LogError(logging.ChannelPersona, "reset", err, map[string]any{"user": logging.MaskIdentifier(userID)})
		return false
	}
	s.logger.Persona().Info("Persona scores reset", "user", logging.MaskIdentifier(userID))
	return true
}

// Resolve returns the dominant persona for the user.
func (s *PersonaService) Resolve(ctx context.Context, userID string) persona.Dominant {
	return persona.Resolve(s.GetScores(ctx, userID), s.thresholds)
}

// Thresholds exposes the configured thresholds.
func (s *PersonaService) Thresholds() persona.Thresholds {
	return s.thresholds
}
