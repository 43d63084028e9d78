package domain

import (
	"github.com/shopspring/decimal"
)

// AccountSnapshot is the caller's view of the debiting account at validation time
type AccountSnapshot struct {
	ID                  int64
	AccountNumber       string
	AccountName         string
	Balance             decimal.Decimal
	PerTransactionLimit *decimal.Decimal // Overrides Limits.PerTransaction when set
}

// Limits holds the client-side ceilings applied during validation
type Limits struct {
	PerTransaction    decimal.Decimal
	DescriptionMaxLen int
}

// DefaultLimits mirrors the observed server configuration
var DefaultLimits = Limits{
	PerTransaction:    decimal.NewFromInt(1_000_000),
	DescriptionMaxLen: 500,
}

// VirtualBank is a destination institution for external transfers
type VirtualBank struct {
	ID                int64
	BankCode          string
	BankName          string
	BankNameEn        *string
	IsActive          bool
	TransferFee       decimal.Decimal
	ProcessingTimeMin int
	ProcessingTimeMax int
	SuccessRate       decimal.Decimal
	Description       *string
}

// TransferLimits is the server's view of an account's remaining transfer allowance
type TransferLimits struct {
	DailyLimit           decimal.Decimal
	PerTransactionLimit  decimal.Decimal
	DailyUsed            decimal.Decimal
	RemainingDaily       decimal.Decimal
	RemainingTransaction decimal.Decimal
}
