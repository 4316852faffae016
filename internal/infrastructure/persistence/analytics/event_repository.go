// Package analytics provides the concrete SQL-based implementation
// for interaction event persistence.
//
// Events are written as they happen and read back only through the
// per-user activity window; age-based cleanup is driven externally.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/events"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

// SQLEventRepository handles real-time event persistence to database.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// Store saves an interaction event. Missing IDs and timestamps are filled in.
func (r *SQLEventRepository) Store(ctx context.Context, event *events.InteractionEvent) error {
	const query = `
		INSERT INTO interaction_events (id, user_identifier, event_type, element_class, element_data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`

	if event.ID == "" {
		event.ID = security.GenerateULID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload := []byte("{}")
	if len(event.ElementData) > 0 {
		encoded, err := json.Marshal(event.ElementData)
		if err != nil {
			r.logger.Database().Error("Failed to encode element data", "error", err.Error(), "eventId", event.ID)
			return fmt.Errorf("failed to encode element data: %w", err)
		}
		payload = encoded
	}

	start := time.Now()
	r.logger.Database().Debug("Executing interaction event insert",
		"eventId", event.ID,
		"eventType", event.EventType,
		"elementClass", event.ElementClass,
		"user", logging.MaskIdentifier(event.UserIdentifier))

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.UserIdentifier,
		string(event.EventType),
		event.ElementClass,
		string(payload),
		database.FormatTime(event.Timestamp),
	)
	if err != nil {
		r.logger.Database().Error("Interaction event insert failed", "error", err.Error(), "eventId", event.ID)
		return fmt.Errorf("failed to store interaction event: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Interaction event insert completed", "eventId", event.ID, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "INSERT INTO interaction_events", duration, event.UserIdentifier)
	return nil
}

// FindRecentByUser returns the user's events at or after since, oldest first.
func (r *SQLEventRepository) FindRecentByUser(ctx context.Context, userID string, since time.Time) ([]*events.InteractionEvent, error) {
	const query = `
		SELECT id, user_identifier, event_type, element_class, element_data, timestamp
		FROM interaction_events
		WHERE user_identifier = ? AND timestamp >= ?
		ORDER BY timestamp ASC`

	start := time.Now()
	r.logger.Database().Debug("Loading recent interaction events", "user", logging.MaskIdentifier(userID), "since", since)

	rows, err := r.db.QueryContext(ctx, query, userID, database.FormatTime(since))
	if err != nil {
		r.logger.Database().Error("Failed to query recent events", "error", err.Error())
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	var out []*events.InteractionEvent
	for rows.Next() {
		var (
			e         events.InteractionEvent
			eventType string
			payload   string
			ts        string
		)
		if err := rows.Scan(&e.ID, &e.UserIdentifier, &eventType, &e.ElementClass, &payload, &ts); err != nil {
			r.logger.Database().Error("Failed to scan interaction event", "error", err.Error())
			return nil, fmt.Errorf("failed to scan interaction event: %w", err)
		}
		e.EventType = events.EventType(eventType)
		e.Timestamp = database.ParseTime(ts)
		if payload != "" && payload != "{}" {
			if err := json.Unmarshal([]byte(payload), &e.ElementData); err != nil {
				r.logger.Database().Warn("Discarding unreadable element data", "eventId", e.ID, "error", err.Error())
				e.ElementData = nil
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interaction events: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Recent interaction events loaded", "count", len(out), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "SELECT FROM interaction_events", duration, userID)
	return out, nil
}

// PurgeOlderThan deletes events recorded before cutoff.
func (r *SQLEventRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM interaction_events WHERE timestamp < ?`

	start := time.Now()
	r.logger.Database().Debug("Purging interaction events", "cutoff", cutoff)

	res, err := r.db.ExecContext(ctx, query, database.FormatTime(cutoff))
	if err != nil {
		r.logger.Database().Error("Interaction event purge failed", "error", err.Error())
		return 0, fmt.Errorf("failed to purge interaction events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged events: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Interaction events purged", "deleted", n, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "PURGE_INTERACTION_EVENTS", duration, "system")
	return n, nil
}
