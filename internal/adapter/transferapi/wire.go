package transferapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow/internal/domain"
)

// transferRequest is the POST body for create and validate
type transferRequest struct {
	FromAccountID   int64       `json:"from_account_id"`
	ToAccountNumber string      `json:"to_account_number"`
	ToBankID        *int64      `json:"to_bank_id,omitempty"`
	Amount          json.Number `json:"amount"`
	Description     string      `json:"description,omitempty"`
	TransferType    string      `json:"transfer_type"`
}

func newTransferRequest(intent domain.TransferIntent) transferRequest {
	intent = intent.Normalized()
	return transferRequest{
		FromAccountID:   intent.FromAccountID,
		ToAccountNumber: intent.ToAccountNumber,
		ToBankID:        intent.ToBankID,
		Amount:          json.Number(intent.Amount.String()),
		Description:     intent.Description,
		TransferType:    string(intent.TransferType()),
	}
}

type bankDTO struct {
	ID                int64           `json:"id"`
	BankCode          string          `json:"bank_code"`
	BankName          string          `json:"bank_name"`
	BankNameEn        *string         `json:"bank_name_en"`
	IsActive          bool            `json:"is_active"`
	TransferFee       decimal.Decimal `json:"transfer_fee"`
	ProcessingTimeMin int             `json:"processing_time_min"`
	ProcessingTimeMax int             `json:"processing_time_max"`
	SuccessRate       decimal.Decimal `json:"success_rate"`
	Description       *string         `json:"description"`
}

func (b bankDTO) toDomain() domain.VirtualBank {
	return domain.VirtualBank{
		ID:                b.ID,
		BankCode:          b.BankCode,
		BankName:          b.BankName,
		BankNameEn:        b.BankNameEn,
		IsActive:          b.IsActive,
		TransferFee:       b.TransferFee,
		ProcessingTimeMin: b.ProcessingTimeMin,
		ProcessingTimeMax: b.ProcessingTimeMax,
		SuccessRate:       b.SuccessRate,
		Description:       b.Description,
	}
}

type transferDTO struct {
	ID              int64           `json:"id"`
	FromAccountID   int64           `json:"from_account_id"`
	ToAccountNumber string          `json:"to_account_number"`
	ToBankID        *int64          `json:"to_bank_id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description"`
	Status          string          `json:"status"`
	TransferType    string          `json:"transfer_type"`
	ReferenceNumber string          `json:"reference_number"`
	CreatedAt       string          `json:"created_at"`
	CompletedAt     *string         `json:"completed_at"`
	ErrorMessage    *string         `json:"error_message"`
	VirtualBank     *bankDTO        `json:"virtual_bank"`
}

func (t transferDTO) toDomain() (*domain.Transfer, error) {
	status := domain.TransferStatus(t.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown transfer status %q", t.Status)
	}
	if t.ID == 0 {
		return nil, fmt.Errorf("transfer id missing")
	}

	createdAt, err := parseTimestamp(t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}

	transfer := &domain.Transfer{
		ID:              t.ID,
		Status:          status,
		TransferType:    domain.TransferType(t.TransferType),
		ReferenceNumber: t.ReferenceNumber,
		Amount:          t.Amount,
		FromAccountID:   t.FromAccountID,
		ToAccountNumber: t.ToAccountNumber,
		ToBankID:        t.ToBankID,
		Description:     t.Description,
		CreatedAt:       createdAt,
		ErrorMessage:    t.ErrorMessage,
	}
	if transfer.TransferType == "" {
		transfer.TransferType = domain.TransferTypeInternal
		if t.ToBankID != nil {
			transfer.TransferType = domain.TransferTypeExternal
		}
	}

	if t.CompletedAt != nil && *t.CompletedAt != "" {
		completedAt, err := parseTimestamp(*t.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at: %w", err)
		}
		transfer.CompletedAt = &completedAt
	}

	if t.VirtualBank != nil {
		bank := t.VirtualBank.toDomain()
		transfer.VirtualBank = &bank
	}

	return transfer, nil
}

type paginationDTO struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func (p *paginationDTO) toDomain() *domain.Pagination {
	if p == nil {
		return nil
	}
	return &domain.Pagination{
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		PageSize:    p.PageSize,
		TotalItems:  p.TotalItems,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}

type validationDTO struct {
	Valid                   *bool            `json:"valid"`
	Errors                  []string         `json:"errors"`
	Warnings                []string         `json:"warnings"`
	EstimatedFee            *decimal.Decimal `json:"estimated_fee"`
	EstimatedProcessingTime *int             `json:"estimated_processing_time"`
}

func (v validationDTO) toDomain() (*domain.ValidationResult, error) {
	if v.Valid == nil {
		return nil, fmt.Errorf("validation payload missing valid flag")
	}
	return &domain.ValidationResult{
		Valid:                   *v.Valid,
		Errors:                  v.Errors,
		Warnings:                v.Warnings,
		EstimatedFee:            v.EstimatedFee,
		EstimatedProcessingTime: v.EstimatedProcessingTime,
	}, nil
}

type limitsDTO struct {
	DailyLimit           decimal.Decimal `json:"daily_limit"`
	PerTransactionLimit  decimal.Decimal `json:"per_transaction_limit"`
	DailyUsed            decimal.Decimal `json:"daily_used"`
	RemainingDaily       decimal.Decimal `json:"remaining_daily"`
	RemainingTransaction decimal.Decimal `json:"remaining_transaction"`
}

type accountDTO struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Balance       decimal.Decimal `json:"balance"`
	// Present on transfer-enabled account listings only
	PerTransactionLimit *decimal.Decimal `json:"per_transaction_limit"`
}

type accountDetailDTO struct {
	Account *accountDTO `json:"account"`
}

// statusDTO accepts {"status": "..."}; a bare JSON string is handled by decodeStatus
type statusDTO struct {
	Status string `json:"status"`
}

type cancelDTO struct {
	Success *bool `json:"success"`
}

// errorEnvelope is the failure body the transfer API sends on non-2xx responses
type errorEnvelope struct {
	Error   *string         `json:"error"`
	Message *string         `json:"message"`
	Details json.RawMessage `json:"details"`
	Success *bool           `json:"success"`
}

// decodeData unwraps {"data": ...} envelopes and also accepts the bare payload
func decodeData[T any](body []byte) (T, *paginationDTO, error) {
	var out T
	trimmed := bytes.TrimSpace(body)

	var env struct {
		Data       json.RawMessage `json:"data"`
		Pagination *paginationDTO  `json:"pagination"`
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return out, nil, err
		}
		if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
			trimmed = env.Data
		}
	}

	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, nil, err
	}
	return out, env.Pagination, nil
}

// decodeStatus accepts either {"status": "X"} or the bare value "X"
func decodeStatus(body []byte) (domain.TransferStatus, error) {
	trimmed := bytes.TrimSpace(body)

	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		var dto statusDTO
		if err := json.Unmarshal(trimmed, &dto); err != nil {
			return "", err
		}
		raw = dto.Status
	}

	status := domain.TransferStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown transfer status %q", raw)
	}
	return status, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO form; zone-less values are UTC
func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
