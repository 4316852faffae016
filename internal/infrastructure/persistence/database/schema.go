package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaCreator builds the tables used by the pipeline.
type SchemaCreator struct{}

// NewSchemaCreator creates a new SchemaCreator.
func NewSchemaCreator() *SchemaCreator {
	return &SchemaCreator{}
}

// CreateSchema executes all necessary queries to build tables and indexes.
// Every statement is idempotent.
func (sc *SchemaCreator) CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.ExecContext(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS interaction_events (
		id TEXT PRIMARY KEY,
		user_identifier TEXT NOT NULL,
		event_type TEXT NOT NULL,
		element_class TEXT NOT NULL DEFAULT '',
		element_data TEXT NOT NULL DEFAULT '{}',
		timestamp TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS persona_scores (
		user_identifier TEXT NOT NULL,
		persona_type TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_identifier, persona_type)
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		user_identifier TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		params TEXT NOT NULL DEFAULT '{}',
		score INTEGER NOT NULL,
		status TEXT NOT NULL,
		notified INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ai_action_log (
		id TEXT PRIMARY KEY,
		user_identifier TEXT NOT NULL,
		action TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_messages (
		id TEXT PRIMARY KEY,
		user_identifier TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS blocked_users (
		user_identifier TEXT PRIMARY KEY,
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_events_user_time ON interaction_events(user_identifier, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_events_time ON interaction_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_user ON leads(user_identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_action_log_user ON ai_action_log(user_identifier, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_user ON conversation_messages(user_identifier, created_at)`,
}
