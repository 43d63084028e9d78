package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalEvent names a diagnostic event recorded during a workflow run
type JournalEvent string

const (
	JournalEventSubmitted      JournalEvent = "SUBMITTED"
	JournalEventRejected       JournalEvent = "REJECTED"
	JournalEventPollFailed     JournalEvent = "POLL_FAILED"
	JournalEventTerminal       JournalEvent = "TERMINAL"
	JournalEventTrackingLost   JournalEvent = "TRACKING_TIMEOUT"
	JournalEventTrackingCancel JournalEvent = "TRACKING_ABANDONED"
)

// JournalEntry is an append-only diagnostic record.
// Adheres to the journal_entries table created by the postgres schema bootstrap.
type JournalEntry struct {
	ID         uuid.UUID
	WorkflowID uuid.UUID
	TransferID *int64
	Event      JournalEvent
	Phase      string
	Status     TransferStatus // Empty when no status was observed
	ErrorKind  ErrorKind      // Empty on success
	Message    string
	Attempt    int
	RecordedAt time.Time
}
