package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow/internal/domain"
)

// ErrNotCancellable is returned when a transfer has left the PENDING status
var ErrNotCancellable = errors.New("transfer can no longer be cancelled")

// Summary holds transfer statistics over one page of history
type Summary struct {
	TotalTransfers      int
	SuccessfulTransfers int
	FailedTransfers     int
	TotalAmount         decimal.Decimal // COMPLETED transfers only
	AverageAmount       decimal.Decimal // COMPLETED transfers only
	SuccessRate         decimal.Decimal // Percentage of COMPLETED over all transfers, 2 places
}

// HistoryService handles transfer history operations
type HistoryService struct {
	TransferAPI domain.TransferAPI
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(transferAPI domain.TransferAPI) *HistoryService {
	return &HistoryService{
		TransferAPI: transferAPI,
	}
}

// List retrieves one page of transfer history
func (s *HistoryService) List(ctx context.Context, filter domain.TransferFilter) (*domain.TransferPage, error) {
	page, err := s.TransferAPI.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return page, nil
}

// ByStatus returns the transfers that carry status, preserving order
func ByStatus(transfers []domain.Transfer, status domain.TransferStatus) []domain.Transfer {
	matched := make([]domain.Transfer, 0, len(transfers))
	for _, transfer := range transfers {
		if transfer.Status == status {
			matched = append(matched, transfer)
		}
	}
	return matched
}

// Summary calculates statistics over the page of history matching filter
// Logic:
//   - Successful: COMPLETED transfers, Failed: FAILED transfers
//   - TotalAmount and AverageAmount only count COMPLETED transfers
//   - SuccessRate: Successful / Total * 100, zero for an empty page
func (s *HistoryService) Summary(ctx context.Context, filter domain.TransferFilter) (*Summary, error) {
	page, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Summarize(page.Transfers), nil
}

// Summarize calculates statistics over transfers already fetched
func Summarize(transfers []domain.Transfer) *Summary {
	summary := &Summary{
		TotalTransfers: len(transfers),
		TotalAmount:    decimal.Zero,
		AverageAmount:  decimal.Zero,
		SuccessRate:    decimal.Zero,
	}

	completed := ByStatus(transfers, domain.TransferStatusCompleted)
	summary.SuccessfulTransfers = len(completed)
	summary.FailedTransfers = len(ByStatus(transfers, domain.TransferStatusFailed))
	for _, transfer := range completed {
		summary.TotalAmount = summary.TotalAmount.Add(transfer.Amount)
	}

	if summary.SuccessfulTransfers > 0 {
		summary.AverageAmount = summary.TotalAmount.Div(decimal.NewFromInt(int64(summary.SuccessfulTransfers))).Round(2)
	}
	if summary.TotalTransfers > 0 {
		summary.SuccessRate = decimal.NewFromInt(int64(summary.SuccessfulTransfers)).
			Div(decimal.NewFromInt(int64(summary.TotalTransfers))).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return summary
}

// Cancel requests cancellation of a transfer that is still PENDING
// Logic:
//  1. Fetch a fresh snapshot; the caller's copy may be stale
//  2. Refuse anything but PENDING without calling the server
//  3. Request cancellation and return the refreshed snapshot
func (s *HistoryService) Cancel(ctx context.Context, id int64) (*domain.Transfer, error) {
	transfer, err := s.TransferAPI.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}

	if !transfer.CanCancel() {
		return transfer, fmt.Errorf("%w: transfer %d is %s", ErrNotCancellable, id, transfer.Status)
	}

	ok, err := s.TransferAPI.Cancel(ctx, id)
	if err != nil {
		return transfer, fmt.Errorf("failed to cancel transfer: %w", err)
	}
	if !ok {
		return transfer, fmt.Errorf("%w: server declined cancellation of transfer %d", ErrNotCancellable, id)
	}

	refreshed, err := s.TransferAPI.Get(ctx, id)
	if err != nil {
		// Cancellation was accepted; report it on the snapshot we have
		return transfer.WithStatus(domain.TransferStatusCancelled), nil
	}
	return refreshed, nil
}
