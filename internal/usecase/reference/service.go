package reference

import (
	"context"
	"fmt"

	"github.com/simaogato/transferflow/internal/domain"
)

// ReferenceService serves the bank directory and account allowances a transfer form needs
type ReferenceService struct {
	Provider domain.ReferenceProvider
}

// NewReferenceService creates a new ReferenceService instance
func NewReferenceService(provider domain.ReferenceProvider) *ReferenceService {
	return &ReferenceService{
		Provider: provider,
	}
}

// Banks lists the destination banks of external transfers.
// Inactive banks are dropped unless includeInactive is set; server order is kept.
func (s *ReferenceService) Banks(ctx context.Context, includeInactive bool) ([]domain.VirtualBank, error) {
	banks, err := s.Provider.Banks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	if includeInactive {
		return banks, nil
	}

	active := make([]domain.VirtualBank, 0, len(banks))
	for _, bank := range banks {
		if bank.IsActive {
			active = append(active, bank)
		}
	}
	return active, nil
}

// Limits retrieves the remaining allowance of an account
func (s *ReferenceService) Limits(ctx context.Context, accountID int64) (*domain.TransferLimits, error) {
	if accountID <= 0 {
		return nil, &domain.TransferError{
			Kind:       domain.KindValidation,
			Message:    "account id must be positive",
			Violations: []domain.Violation{{Field: domain.FieldFromAccountID, Message: "Please select a source account"}},
		}
	}

	limits, err := s.Provider.Limits(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer limits: %w", err)
	}
	return limits, nil
}
