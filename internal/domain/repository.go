package domain

import (
	"context"

	"github.com/google/uuid"
)

// TransferAPI is the port to the remote transfer API.
// Every error returned by an implementation is a *TransferError.
//
//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=repository.go TransferAPI
type TransferAPI interface {
	// Create submits a transfer. It performs exactly one remote mutation attempt.
	Create(ctx context.Context, intent TransferIntent) (*Transfer, error)

	// List retrieves a page of transfers matching filter
	List(ctx context.Context, filter TransferFilter) (*TransferPage, error)

	// Get retrieves one transfer by its server id
	Get(ctx context.Context, id int64) (*Transfer, error)

	// GetStatus reads only the status field of a transfer
	GetStatus(ctx context.Context, id int64) (TransferStatus, error)

	// Validate asks the server to check an intent without committing it
	Validate(ctx context.Context, intent TransferIntent) (*ValidationResult, error)

	// Cancel requests cancellation of a pending transfer
	Cancel(ctx context.Context, id int64) (bool, error)
}

// AccountProvider supplies the account snapshot used for local validation
type AccountProvider interface {
	// Account retrieves the current snapshot of an account by its id
	Account(ctx context.Context, id int64) (*AccountSnapshot, error)
}

// ReferenceProvider supplies the reference data a transfer form is built from
type ReferenceProvider interface {
	// Banks lists the institutions reachable by external transfers
	Banks(ctx context.Context) ([]VirtualBank, error)

	// Limits retrieves the remaining transfer allowance of an account
	Limits(ctx context.Context, accountID int64) (*TransferLimits, error)
}

// JournalRepository defines the interface for workflow journal persistence operations
type JournalRepository interface {
	// Append records a single journal entry
	Append(ctx context.Context, entry *JournalEntry) error

	// ListByWorkflow retrieves all entries of a workflow, oldest first
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]*JournalEntry, error)
}
