package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testAccount() *AccountSnapshot {
	return &AccountSnapshot{
		ID:            1,
		AccountNumber: "1234567890123456",
		AccountName:   "Main",
		Balance:       decimal.NewFromInt(1_500_000),
	}
}

func validIntent() TransferIntent {
	return TransferIntent{
		FromAccountID:   1,
		ToAccountNumber: "9876543210",
		Amount:          decimal.NewFromInt(50_000),
		Description:     "rent",
	}
}

func TestTransferIntent_Validate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(i *TransferIntent)
		account    *AccountSnapshot
		wantValid  bool
		wantFields []string
		wantErrMsg string
	}{
		{
			name:      "Valid internal transfer should pass",
			mutate:    func(i *TransferIntent) {},
			account:   testAccount(),
			wantValid: true,
		},
		{
			name:       "Zero amount should fail",
			mutate:     func(i *TransferIntent) { i.Amount = decimal.Zero },
			account:    testAccount(),
			wantFields: []string{FieldAmount},
			wantErrMsg: "Amount must be a positive number",
		},
		{
			name:       "Negative amount should fail",
			mutate:     func(i *TransferIntent) { i.Amount = decimal.NewFromInt(-10) },
			account:    testAccount(),
			wantFields: []string{FieldAmount},
			wantErrMsg: "Amount must be a positive number",
		},
		{
			name:       "Amount over per-transaction limit should fail",
			mutate:     func(i *TransferIntent) { i.Amount = decimal.NewFromInt(1_000_001) },
			account:    testAccount(),
			wantFields: []string{FieldAmount},
			wantErrMsg: "Amount cannot exceed 1000000",
		},
		{
			name:      "Amount equal to limit should pass",
			mutate:    func(i *TransferIntent) { i.Amount = decimal.NewFromInt(1_000_000) },
			account:   testAccount(),
			wantValid: true,
		},
		{
			name:   "Amount over balance should fail",
			mutate: func(i *TransferIntent) { i.Amount = decimal.NewFromInt(600_000) },
			account: func() *AccountSnapshot {
				a := testAccount()
				a.Balance = decimal.NewFromInt(500_000)
				return a
			}(),
			wantFields: []string{FieldAmount},
			wantErrMsg: "Insufficient balance",
		},
		{
			name:   "Account-level limit tighter than default should apply",
			mutate: func(i *TransferIntent) { i.Amount = decimal.NewFromInt(200_000) },
			account: func() *AccountSnapshot {
				a := testAccount()
				l := decimal.NewFromInt(100_000)
				a.PerTransactionLimit = &l
				return a
			}(),
			wantFields: []string{FieldAmount},
			wantErrMsg: "Amount cannot exceed 100000",
		},
		{
			name:       "Empty destination should fail",
			mutate:     func(i *TransferIntent) { i.ToAccountNumber = "   " },
			account:    testAccount(),
			wantFields: []string{FieldToAccountNumber},
			wantErrMsg: "Please enter destination account number",
		},
		{
			name:       "Destination padded with whitespace should fail",
			mutate:     func(i *TransferIntent) { i.ToAccountNumber = " 1234567890\n" },
			account:    testAccount(),
			wantFields: []string{FieldToAccountNumber},
			wantErrMsg: "Account number must be 10-20 digits",
		},
		{
			name:       "Short destination should fail",
			mutate:     func(i *TransferIntent) { i.ToAccountNumber = "123456789" },
			account:    testAccount(),
			wantFields: []string{FieldToAccountNumber},
			wantErrMsg: "Account number must be 10-20 digits",
		},
		{
			name:       "Destination with dashes should fail",
			mutate:     func(i *TransferIntent) { i.ToAccountNumber = "1001-2345-6789" },
			account:    testAccount(),
			wantFields: []string{FieldToAccountNumber},
			wantErrMsg: "Account number must be 10-20 digits",
		},
		{
			name:       "Destination longer than 20 digits should fail",
			mutate:     func(i *TransferIntent) { i.ToAccountNumber = "123456789012345678901" },
			account:    testAccount(),
			wantFields: []string{FieldToAccountNumber},
			wantErrMsg: "Account number must be 10-20 digits",
		},
		{
			name: "Same account should fail even with invalid amount",
			mutate: func(i *TransferIntent) {
				i.ToAccountNumber = "1234567890123456"
				i.Amount = decimal.NewFromInt(-1)
			},
			account:    testAccount(),
			wantFields: []string{FieldToAccountNumber, FieldAmount},
			wantErrMsg: "Cannot transfer to the same account",
		},
		{
			name:       "Missing source account should fail",
			mutate:     func(i *TransferIntent) { i.FromAccountID = 0 },
			account:    testAccount(),
			wantFields: []string{FieldFromAccountID},
			wantErrMsg: "Please select a source account",
		},
		{
			name:       "Snapshot for another account should fail",
			mutate:     func(i *TransferIntent) {},
			account:    &AccountSnapshot{ID: 7, AccountNumber: "1111111111", Balance: decimal.NewFromInt(10)},
			wantFields: []string{FieldFromAccountID},
			wantErrMsg: "Source account is not available",
		},
		{
			name: "Invalid bank id should fail",
			mutate: func(i *TransferIntent) {
				bank := int64(0)
				i.ToBankID = &bank
			},
			account:    testAccount(),
			wantFields: []string{FieldToBankID},
			wantErrMsg: "Please select a destination bank",
		},
		{
			name:       "Description over 500 characters should fail",
			mutate:     func(i *TransferIntent) { i.Description = strings.Repeat("가", 501) },
			account:    testAccount(),
			wantFields: []string{FieldDescription},
			wantErrMsg: "Description is too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := validIntent()
			tt.mutate(&intent)

			result := intent.Validate(tt.account, DefaultLimits)

			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.Empty(t, result.Errors)
				assert.Empty(t, result.Violations)
				return
			}

			fields := make([]string, 0, len(result.Violations))
			for _, v := range result.Violations {
				fields = append(fields, v.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
			assert.Equal(t, len(result.Violations), len(result.Errors))
			assert.Contains(t, result.Errors, tt.wantErrMsg)
		})
	}
}

func TestTransferIntent_Normalized(t *testing.T) {
	intent := validIntent()
	intent.ToAccountNumber = " 1234567890\n"
	intent.Description = "  rent\t"

	normalized := intent.Normalized()

	assert.Equal(t, "1234567890", normalized.ToAccountNumber)
	assert.Equal(t, "rent", normalized.Description)
	assert.Equal(t, " 1234567890\n", intent.ToAccountNumber, "receiver must not be modified")
	assert.True(t, normalized.Validate(testAccount(), DefaultLimits).Valid)
	assert.False(t, intent.Validate(testAccount(), DefaultLimits).Valid)
}

func TestTransferIntent_Validate_ReportsViolationsInFieldOrder(t *testing.T) {
	intent := TransferIntent{
		FromAccountID:   0,
		ToAccountNumber: "abc",
		Amount:          decimal.Zero,
		Description:     strings.Repeat("x", 501),
	}

	result := intent.Validate(nil, DefaultLimits)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		"Please select a source account",
		"Account number must be 10-20 digits",
		"Amount must be a positive number",
		"Description is too long",
	}, result.Errors)
}

func TestTransferIntent_Validate_IsDeterministic(t *testing.T) {
	intent := validIntent()
	intent.Amount = decimal.NewFromInt(2_000_000)

	first := intent.Validate(testAccount(), DefaultLimits)
	second := intent.Validate(testAccount(), DefaultLimits)

	assert.Equal(t, first, second)
}

func TestTransferIntent_TransferType(t *testing.T) {
	intent := validIntent()
	assert.Equal(t, TransferTypeInternal, intent.TransferType())

	bank := int64(3)
	intent.ToBankID = &bank
	assert.Equal(t, TransferTypeExternal, intent.TransferType())
}
