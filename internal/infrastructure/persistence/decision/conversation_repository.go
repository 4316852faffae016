package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/decision"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

// SQLConversationRepository stores conversation turns.
type SQLConversationRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLConversationRepository creates a new instance of the repository.
func NewSQLConversationRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLConversationRepository {
	return &SQLConversationRepository{db: db, logger: logger}
}

// Append stores one message.
func (r *SQLConversationRepository) Append(ctx context.Context, msg *decision.Message) error {
	const query = `
		INSERT INTO conversation_messages (id, user_identifier, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if msg.ID == "" {
		msg.ID = security.GenerateULID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.UserIdentifier, string(msg.Role), msg.Content, database.FormatTime(msg.CreatedAt))
	if err != nil {
		r.logger.Database().Error("Conversation insert failed", "error", err.Error(), "id", msg.ID)
		return fmt.Errorf("failed to append conversation message: %w", err)
	}
	r.logger.Database().Debug("Conversation message stored", "id", msg.ID, "role", msg.Role, "duration", time.Since(start))
	return nil
}

// Recent returns up to limit of the newest messages in chronological order.
func (r *SQLConversationRepository) Recent(ctx context.Context, userID string, limit int) ([]*decision.Message, error) {
	const query = `
		SELECT id, user_identifier, role, content, created_at
		FROM conversation_messages
		WHERE user_identifier = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		r.logger.Database().Error("Failed to query conversation", "error", err.Error())
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	var out []*decision.Message
	for rows.Next() {
		var (
			m       decision.Message
			role, c string
		)
		if err := rows.Scan(&m.ID, &m.UserIdentifier, &role, &m.Content, &c); err != nil {
			return nil, fmt.Errorf("failed to scan conversation message: %w", err)
		}
		m.Role = decision.Role(role)
		m.CreatedAt = database.ParseTime(c)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
