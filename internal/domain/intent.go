package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var accountNumberPattern = regexp.MustCompile(`^\d{10,20}$`)

// Validation fields, in the order violations are reported
const (
	FieldFromAccountID   = "from_account_id"
	FieldToAccountNumber = "to_account_number"
	FieldToBankID        = "to_bank_id"
	FieldAmount          = "amount"
	FieldDescription     = "description"
)

// TransferIntent is the caller-supplied request to move money.
// Treat it as immutable once handed to a workflow.
type TransferIntent struct {
	FromAccountID   int64
	ToAccountNumber string
	ToBankID        *int64 // nil for internal transfers
	Amount          decimal.Decimal
	Description     string
}

// TransferType derives the transfer type from the presence of a destination bank
func (i TransferIntent) TransferType() TransferType {
	if i.ToBankID != nil {
		return TransferTypeExternal
	}
	return TransferTypeInternal
}

// Violation is a single field-level validation failure
type Violation struct {
	Field   string
	Message string
}

// ValidationResult is the outcome of validating an intent, locally or by the server
type ValidationResult struct {
	Valid                   bool
	Errors                  []string
	Violations              []Violation // Local validation only
	Warnings                []string
	EstimatedFee            *decimal.Decimal
	EstimatedProcessingTime *int
}

// Normalized returns the intent with surrounding whitespace removed from its free-text fields.
// Validate and submit the normalized intent so the server receives the value that was checked.
func (i TransferIntent) Normalized() TransferIntent {
	i.ToAccountNumber = strings.TrimSpace(i.ToAccountNumber)
	i.Description = strings.TrimSpace(i.Description)
	return i
}

// Validate checks the intent against the source account snapshot and the configured limits.
// It is pure: no I/O, same input always yields the same ordered result.
// Invariant enforced: 0 < amount <= min(limit, balance), destination matches ^\d{10,20}$
// exactly as given and differs from the source account number.
func (i TransferIntent) Validate(account *AccountSnapshot, limits Limits) ValidationResult {
	var violations []Violation
	add := func(field, msg string) {
		violations = append(violations, Violation{Field: field, Message: msg})
	}

	// Source account
	knownAccount := account != nil && account.ID == i.FromAccountID
	if i.FromAccountID <= 0 {
		add(FieldFromAccountID, "Please select a source account")
	} else if !knownAccount {
		add(FieldFromAccountID, "Source account is not available")
	}

	// Destination account number
	switch {
	case strings.TrimSpace(i.ToAccountNumber) == "":
		add(FieldToAccountNumber, "Please enter destination account number")
	case !accountNumberPattern.MatchString(i.ToAccountNumber):
		add(FieldToAccountNumber, "Account number must be 10-20 digits")
	case knownAccount && account.AccountNumber == i.ToAccountNumber:
		add(FieldToAccountNumber, "Cannot transfer to the same account")
	}

	if i.ToBankID != nil && *i.ToBankID <= 0 {
		add(FieldToBankID, "Please select a destination bank")
	}

	// Amount
	limit := limits.PerTransaction
	if knownAccount && account.PerTransactionLimit != nil && account.PerTransactionLimit.LessThan(limit) {
		limit = *account.PerTransactionLimit
	}
	switch {
	case i.Amount.LessThanOrEqual(decimal.Zero):
		add(FieldAmount, "Amount must be a positive number")
	case limit.IsPositive() && i.Amount.GreaterThan(limit):
		add(FieldAmount, "Amount cannot exceed "+limit.String())
	case knownAccount && i.Amount.GreaterThan(account.Balance):
		add(FieldAmount, "Insufficient balance")
	}

	if limits.DescriptionMaxLen > 0 && utf8.RuneCountInString(i.Description) > limits.DescriptionMaxLen {
		add(FieldDescription, "Description is too long")
	}

	result := ValidationResult{
		Valid:      len(violations) == 0,
		Violations: violations,
		Errors:     make([]string, 0, len(violations)),
	}
	for _, v := range violations {
		result.Errors = append(result.Errors, v.Message)
	}
	return result
}
