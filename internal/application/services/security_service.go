package services

import (
	"context"
	"strings"

	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/domain/failures"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

// SecurityService consults and maintains the visitor block list.
type SecurityService struct {
	blocks decision.BlockRepository
	logger *logging.ChanneledLogger
}

// NewSecurityService creates a new security service.
func NewSecurityService(blocks decision.BlockRepository, logger *logging.ChanneledLogger) *SecurityService {
	return &SecurityService{blocks: blocks, logger: logger}
}

// IsBlocked reports whether userID is on the block list. A storage failure
// is logged and treated as not blocked. A nil service blocks nobody.
func (s *SecurityService) IsBlocked(ctx context.Context, userID string) bool {
	if s == nil || s.blocks == nil {
		return false
	}
	blocked, err := s.blocks.IsBlocked(ctx, userID)
	if err != nil {
		s.logger.LogError(logging.ChannelAuth, "check_block", err, map[string]any{"user": logging.MaskIdentifier(userID)})
		return false
	}
	return blocked
}

// Block adds userID to the block list.
func (s *SecurityService) Block(ctx context.Context, userID, reason string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return failures.Validation("block_user", "user identifier is required")
	}
	if err := s.blocks.Block(ctx, userID, strings.TrimSpace(reason)); err != nil {
		return failures.Storage("block_user", err)
	}
	s.logger.Auth().Warn("Visitor blocked", "user", logging.MaskIdentifier(userID), "reason", reason)
	return nil
}

// Unblock removes userID from the block list.
func (s *SecurityService) Unblock(ctx context.Context, userID string) error {
	if err := s.blocks.Unblock(ctx, userID); err != nil {
		return failures.Storage("unblock_user", err)
	}
	s.logger.Auth().Info("Visitor unblocked", "user", logging.MaskIdentifier(userID))
	return nil
}
