// Package persona provides the persona score stores: a SQL implementation
// backed by an atomic upsert and a Redis implementation backed by HINCRBY.
package persona

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
)

// SQLScoreRepository is the SQL-based implementation of persona.Repository.
type SQLScoreRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLScoreRepository creates a new instance of the repository.
func NewSQLScoreRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLScoreRepository {
	return &SQLScoreRepository{
		db:     db,
		logger: logger,
	}
}

// AddScore applies delta to the (user, persona) row in a single statement.
func (r *SQLScoreRepository) AddScore(ctx context.Context, userID string, personaType persona.Type, delta int) error {
	const query = `
		INSERT INTO persona_scores (user_identifier, persona_type, score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_identifier, persona_type)
		DO UPDATE SET score = score + excluded.score, updated_at = excluded.updated_at`

	now := database.FormatTime(time.Now())
	start := time.Now()
	r.logger.Database().Debug("Executing persona score upsert",
		"user", logging.MaskIdentifier(userID),
		"personaType", personaType,
		"delta", delta)

	if _, err := r.db.ExecContext(ctx, query, userID, string(personaType), delta, now, now); err != nil {
		r.logger.Database().Error("Persona score upsert failed", "error", err.Error(), "personaType", personaType)
		return fmt.Errorf("failed to upsert persona score: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Persona score upsert completed", "personaType", personaType, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "UPSERT persona_scores", duration, userID)
	return nil
}

// GetScores returns every stored score for the user.
func (r *SQLScoreRepository) GetScores(ctx context.Context, userID string) (map[persona.Type]int, error) {
	const query = `SELECT persona_type, score FROM persona_scores WHERE user_identifier = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading persona scores", "user", logging.MaskIdentifier(userID))

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Database().Error("Failed to query persona scores", "error", err.Error())
		return nil, fmt.Errorf("failed to query persona scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[persona.Type]int)
	for rows.Next() {
		var (
			t     string
			score int
		)
		if err := rows.Scan(&t, &score); err != nil {
			return nil, fmt.Errorf("failed to scan persona score: %w", err)
		}
		scores[persona.Type(t)] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persona scores: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Persona scores loaded", "count", len(scores), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "SELECT FROM persona_scores", duration, userID)
	return scores, nil
}

// Reset removes all of the user's scores.
func (r *SQLScoreRepository) Reset(ctx context.Context, userID string) error {
	const query = `DELETE FROM persona_scores WHERE user_identifier = ?`

	start := time.Now()
	r.logger.Database().Debug("Resetting persona scores", "user", logging.MaskIdentifier(userID))

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		r.logger.Database().Error("Persona score reset failed", "error", err.Error())
		return fmt.Errorf("failed to reset persona scores: %w", err)
	}

	r.logger.Database().Info("Persona scores reset", "duration", time.Since(start))
	return nil
}
