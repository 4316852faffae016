package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
)

// SQLBlockRepository is the visitor block list.
type SQLBlockRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLBlockRepository creates a new instance of the repository.
func NewSQLBlockRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLBlockRepository {
	return &SQLBlockRepository{db: db, logger: logger}
}

func (r *SQLBlockRepository) IsBlocked(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM blocked_users WHERE user_identifier = ?)`

	var blocked bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&blocked); err != nil {
		r.logger.Database().Error("Block list lookup failed", "error", err.Error())
		return false, fmt.Errorf("failed to check block list: %w", err)
	}
	return blocked, nil
}

func (r *SQLBlockRepository) Block(ctx context.Context, userID, reason string) error {
	const query = `
		INSERT INTO blocked_users (user_identifier, reason, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_identifier) DO UPDATE SET reason = excluded.reason`

	if _, err := r.db.ExecContext(ctx, query, userID, reason, database.FormatTime(time.Now())); err != nil {
		r.logger.Database().Error("Block insert failed", "error", err.Error())
		return fmt.Errorf("failed to block user: %w", err)
	}
	r.logger.Database().Info("User blocked", "user", logging.MaskIdentifier(userID))
	return nil
}

func (r *SQLBlockRepository) Unblock(ctx context.Context, userID string) error {
	const query = `DELETE FROM blocked_users WHERE user_identifier = ?`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		r.logger.Database().Error("Block removal failed", "error", err.Error())
		return fmt.Errorf("failed to unblock user: %w", err)
	}
	return nil
}
