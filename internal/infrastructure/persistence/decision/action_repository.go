// Package decision provides the SQL-backed stores around AI decisions:
// the action audit log, conversation turns and the visitor block list.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

// SQLActionLogRepository records dispatched UI actions.
type SQLActionLogRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLActionLogRepository creates a new instance of the repository.
func NewSQLActionLogRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLActionLogRepository {
	return &SQLActionLogRepository{db: db, logger: logger}
}

// Record appends an audit row.
func (r *SQLActionLogRepository) Record(ctx context.Context, entry *decision.ActionLog) error {
	const query = `
		INSERT INTO ai_action_log (id, user_identifier, action, target, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if entry.ID == "" {
		entry.ID = security.GenerateULID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data := []byte("{}")
	if len(entry.Data) > 0 {
		encoded, err := json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("failed to encode action data: %w", err)
		}
		data = encoded
	}

	start := time.Now()
	r.logger.Database().Debug("Executing action log insert", "id", entry.ID, "action", entry.Action)

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.UserIdentifier, string(entry.Action), entry.Target, string(data),
		database.FormatTime(entry.CreatedAt))
	if err != nil {
		r.logger.Database().Error("Action log insert failed", "error", err.Error(), "id", entry.ID)
		return fmt.Errorf("failed to record action: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Action log insert completed", "id", entry.ID, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "INSERT INTO ai_action_log", duration, entry.UserIdentifier)
	return nil
}

// FindByUser returns the newest actions for a user.
func (r *SQLActionLogRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*decision.ActionLog, error) {
	const query = `
		SELECT id, user_identifier, action, target, data, created_at
		FROM ai_action_log
		WHERE user_identifier = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		r.logger.Database().Error("Failed to query action log", "error", err.Error())
		return nil, fmt.Errorf("failed to query action log: %w", err)
	}
	defer rows.Close()

	var out []*decision.ActionLog
	for rows.Next() {
		var (
			entry           decision.ActionLog
			action, data, c string
		)
		if err := rows.Scan(&entry.ID, &entry.UserIdentifier, &action, &entry.Target, &data, &c); err != nil {
			return nil, fmt.Errorf("failed to scan action log: %w", err)
		}
		entry.Action = decision.ActionType(action)
		entry.CreatedAt = database.ParseTime(c)
		if data != "" && data != "{}" {
			_ = json.Unmarshal([]byte(data), &entry.Data)
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}
