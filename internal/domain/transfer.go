package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus represents the server-side lifecycle state of a transfer
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "PENDING"
	TransferStatusInProgress TransferStatus = "IN_PROGRESS"
	TransferStatusCompleted  TransferStatus = "COMPLETED"
	TransferStatusFailed     TransferStatus = "FAILED"
	TransferStatusCancelled  TransferStatus = "CANCELLED"
)

// IsValid reports whether s is one of the statuses the transfer API can return
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusInProgress,
		TransferStatusCompleted, TransferStatusFailed, TransferStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions can happen after s
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed || s == TransferStatusCancelled
}

// TransferType distinguishes intra-institution from cross-institution transfers
type TransferType string

const (
	TransferTypeInternal TransferType = "INTERNAL"
	TransferTypeExternal TransferType = "EXTERNAL"
)

// Transfer is the server-assigned record of a money movement.
// It is a read-only snapshot: the client replaces it with newer snapshots but never edits one.
type Transfer struct {
	ID              int64
	Status          TransferStatus
	TransferType    TransferType
	ReferenceNumber string
	Amount          decimal.Decimal
	FromAccountID   int64
	ToAccountNumber string
	ToBankID        *int64
	Description     *string
	CreatedAt       time.Time
	CompletedAt     *time.Time
	ErrorMessage    *string      // Only set when Status is FAILED
	VirtualBank     *VirtualBank // Populated for external transfers
}

// CanCancel reports whether the server still accepts a cancellation request
func (t *Transfer) CanCancel() bool {
	return t.Status == TransferStatusPending
}

// WithStatus returns a copy of the snapshot carrying the last observed status
func (t Transfer) WithStatus(status TransferStatus) *Transfer {
	t.Status = status
	return &t
}

// TransferFilter narrows a transfer history query.
// Zero values mean "no filter"; Limit 0 means the default page size.
type TransferFilter struct {
	AccountID    *int64
	Status       TransferStatus
	TransferType TransferType
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Pagination describes the page returned by a history query
type Pagination struct {
	CurrentPage int
	TotalPages  int
	PageSize    int
	TotalItems  int
	HasNext     bool
	HasPrevious bool
}

// TransferPage is one page of transfer history
type TransferPage struct {
	Transfers  []Transfer
	Pagination *Pagination // nil when the server does not paginate
}
