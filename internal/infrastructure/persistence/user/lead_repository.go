// Package user provides the concrete SQL-based implementation of
// the lead repository.
package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

const leadColumns = `id, user_identifier, name, email, phone, company, params, score, status, notified, created_at`

// SQLLeadRepository is the SQL-based implementation of leads.Repository.
type SQLLeadRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLLeadRepository creates a new instance of the repository.
func NewSQLLeadRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLLeadRepository {
	return &SQLLeadRepository{
		db:     db,
		logger: logger,
	}
}

// Store saves a new Lead to the database.
func (r *SQLLeadRepository) Store(ctx context.Context, lead *leads.Lead) error {
	const query = `INSERT INTO leads (` + leadColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if lead.ID == "" {
		lead.ID = security.GenerateULID()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	params, err := json.Marshal(lead.Params)
	if err != nil {
		return fmt.Errorf("failed to encode lead params: %w", err)
	}

	start := time.Now()
	r.logger.Database().Debug("Executing lead insert", "id", lead.ID, "score", lead.Score, "status", lead.Status)

	_, err = r.db.ExecContext(ctx, query,
		lead.ID,
		lead.UserIdentifier,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Company,
		string(params),
		lead.Score,
		string(lead.Status),
		lead.Notified,
		database.FormatTime(lead.CreatedAt),
	)
	if err != nil {
		r.logger.Database().Error("Lead insert failed", "error", err.Error(), "id", lead.ID)
		return fmt.Errorf("failed to store lead: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Lead insert completed", "id", lead.ID, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "INSERT INTO leads", duration, lead.UserIdentifier)
	return nil
}

// FindByID retrieves a Lead by its unique identifier. A missing lead is (nil, nil).
func (r *SQLLeadRepository) FindByID(ctx context.Context, id string) (*leads.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading lead by ID", "id", id)

	lead, err := scanLead(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Database().Debug("Lead not found by ID", "id", id)
			return nil, nil
		}
		r.logger.Database().Error("Failed to load lead by ID", "error", err.Error(), "id", id)
		return nil, err
	}

	r.logger.Database().Info("Lead loaded by ID", "id", id, "duration", time.Since(start))
	return lead, nil
}

// FindByUser returns the user's leads, newest first.
func (r *SQLLeadRepository) FindByUser(ctx context.Context, userID string) ([]*leads.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE user_identifier = ? ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// List returns leads, optionally filtered by status, newest first.
func (r *SQLLeadRepository) List(ctx context.Context, status leads.Status, limit int) ([]*leads.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	if status == "" {
		const query = `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC LIMIT ?`
		return r.list(ctx, query, limit)
	}
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE status = ? ORDER BY created_at DESC LIMIT ?`
	return r.list(ctx, query, string(status), limit)
}

// MarkNotified flags a lead once the sales team was emailed.
func (r *SQLLeadRepository) MarkNotified(ctx context.Context, id string) error {
	const query = `UPDATE leads SET notified = 1 WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.logger.Database().Error("Lead notification flag update failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to mark lead notified: %w", err)
	}
	return nil
}

func (r *SQLLeadRepository) list(ctx context.Context, query string, args ...any) ([]*leads.Lead, error) {
	start := time.Now()
	r.logger.Database().Debug("Listing leads")

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Database().Error("Failed to list leads", "error", err.Error())
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var out []*leads.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Leads listed", "count", len(out), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "SELECT FROM leads", duration, "system")
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*leads.Lead, error) {
	var (
		lead      leads.Lead
		params    string
		status    string
		createdAt string
	)
	if err := row.Scan(&lead.ID, &lead.UserIdentifier, &lead.Name, &lead.Email, &lead.Phone,
		&lead.Company, &params, &lead.Score, &status, &lead.Notified, &createdAt); err != nil {
		return nil, err
	}
	lead.Status = leads.Status(status)
	lead.CreatedAt = database.ParseTime(createdAt)
	if params != "" {
		if err := json.Unmarshal([]byte(params), &lead.Params); err != nil {
			return nil, fmt.Errorf("failed to decode lead params: %w", err)
		}
	}
	return &lead, nil
}
