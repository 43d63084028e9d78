package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/transferflow/internal/domain"
)

// journalRepository implements domain.JournalRepository
type journalRepository struct {
	db *DB
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *DB) domain.JournalRepository {
	return &journalRepository{db: db}
}

// Append records a single journal entry
func (r *journalRepository) Append(ctx context.Context, entry *domain.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (id, workflow_id, transfer_id, event, phase, status, error_kind, message, attempt, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.WorkflowID,
		nullInt64(entry.TransferID),
		string(entry.Event),
		entry.Phase,
		nullString(string(entry.Status)),
		nullString(string(entry.ErrorKind)),
		nullString(entry.Message),
		entry.Attempt,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return nil
}

// ListByWorkflow retrieves all entries of a workflow, oldest first
func (r *journalRepository) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]*domain.JournalEntry, error) {
	query := `
		SELECT id, workflow_id, transfer_id, event, phase, status, error_kind, message, attempt, recorded_at
		FROM journal_entries
		WHERE workflow_id = $1
		ORDER BY recorded_at ASC, attempt ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		var entry domain.JournalEntry
		var transferID sql.NullInt64
		var event string
		var status, errorKind, message sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.WorkflowID,
			&transferID,
			&event,
			&entry.Phase,
			&status,
			&errorKind,
			&message,
			&entry.Attempt,
			&entry.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}

		entry.Event = domain.JournalEvent(event)
		if transferID.Valid {
			id := transferID.Int64
			entry.TransferID = &id
		}
		entry.Status = domain.TransferStatus(status.String)
		entry.ErrorKind = domain.ErrorKind(errorKind.String)
		entry.Message = message.String
		entry.RecordedAt = entry.RecordedAt.UTC()

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}

	return entries, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
