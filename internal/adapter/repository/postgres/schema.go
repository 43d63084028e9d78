package postgres

import (
	"context"
	"fmt"
)

// schemaStatements create the journal tables; each statement is idempotent
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS journal_entries (
		id          UUID PRIMARY KEY,
		workflow_id UUID NOT NULL,
		transfer_id BIGINT,
		event       VARCHAR(32) NOT NULL,
		phase       VARCHAR(16) NOT NULL,
		status      VARCHAR(16),
		error_kind  VARCHAR(32),
		message     TEXT,
		attempt     INTEGER NOT NULL DEFAULT 0,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_workflow
		ON journal_entries (workflow_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_transfer
		ON journal_entries (transfer_id)
		WHERE transfer_id IS NOT NULL`,
}

// EnsureSchema creates the journal tables when they do not exist yet.
// Safe to run on every startup.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply journal schema: %w", err)
		}
	}
	return nil
}
