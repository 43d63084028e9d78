package grpc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/usecase/history"
	"github.com/simaogato/transferflow/internal/usecase/workflow"
)

const dateLayout = "2006-01-02"

// stringField returns the trimmed string at key, or "" when absent
func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(kind.StringValue), nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("%s must be a string", key)
	}
}

// int64Field accepts an integral number or a numeric string
func int64Field(s *structpb.Struct, key string) (int64, bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false, fmt.Errorf("%s must be an integer", key)
		}
		return int64(n), true, nil
	case *structpb.Value_StringValue:
		if strings.TrimSpace(kind.StringValue) == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(kind.StringValue), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s must be an integer", key)
		}
		return n, true, nil
	case *structpb.Value_NullValue:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("%s must be an integer", key)
	}
}

func boolField(s *structpb.Struct, key string) (bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return kind.BoolValue, nil
	case *structpb.Value_NullValue:
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean", key)
	}
}

// decimalField accepts a decimal string or a number; strings keep full precision
func decimalField(s *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return decimal.Zero, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s format: %w", key, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	case *structpb.Value_NullValue:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("%s must be a decimal string", key)
	}
}

func dateField(s *structpb.Struct, key string) (*time.Time, error) {
	raw, err := stringField(s, key)
	if err != nil || raw == "" {
		return nil, err
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be formatted as YYYY-MM-DD", key)
	}
	return &d, nil
}

func workflowIDField(s *structpb.Struct) (uuid.UUID, error) {
	raw, err := stringField(s, "workflow_id")
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid workflow_id format: %w", err)
	}
	return id, nil
}

func decodeIntent(s *structpb.Struct) (domain.TransferIntent, error) {
	var intent domain.TransferIntent
	var err error

	if intent.FromAccountID, _, err = int64Field(s, "from_account_id"); err != nil {
		return intent, err
	}
	if intent.ToAccountNumber, err = stringField(s, "to_account_number"); err != nil {
		return intent, err
	}
	bankID, ok, err := int64Field(s, "to_bank_id")
	if err != nil {
		return intent, err
	}
	if ok {
		intent.ToBankID = &bankID
	}
	if intent.Amount, err = decimalField(s, "amount"); err != nil {
		return intent, err
	}
	if intent.Description, err = stringField(s, "description"); err != nil {
		return intent, err
	}
	return intent, nil
}

func decodeFilter(s *structpb.Struct) (domain.TransferFilter, error) {
	var filter domain.TransferFilter

	accountID, ok, err := int64Field(s, "account_id")
	if err != nil {
		return filter, err
	}
	if ok {
		filter.AccountID = &accountID
	}

	rawStatus, err := stringField(s, "status")
	if err != nil {
		return filter, err
	}
	filter.Status = domain.TransferStatus(strings.ToUpper(rawStatus))
	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, fmt.Errorf("unknown status %q", rawStatus)
	}

	rawType, err := stringField(s, "transfer_type")
	if err != nil {
		return filter, err
	}
	filter.TransferType = domain.TransferType(strings.ToUpper(rawType))
	if filter.TransferType != "" && filter.TransferType != domain.TransferTypeInternal && filter.TransferType != domain.TransferTypeExternal {
		return filter, fmt.Errorf("unknown transfer_type %q", rawType)
	}

	if filter.StartDate, err = dateField(s, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = dateField(s, "end_date"); err != nil {
		return filter, err
	}

	limit, _, err := int64Field(s, "limit")
	if err != nil {
		return filter, err
	}
	offset, _, err := int64Field(s, "offset")
	if err != nil {
		return filter, err
	}
	filter.Limit = int(limit)
	filter.Offset = int(offset)

	return filter, nil
}

func encodeTransfer(t *domain.Transfer) map[string]interface{} {
	m := map[string]interface{}{
		"id":                t.ID,
		"status":            string(t.Status),
		"transfer_type":     string(t.TransferType),
		"reference_number":  t.ReferenceNumber,
		"amount":            t.Amount.String(),
		"from_account_id":   t.FromAccountID,
		"to_account_number": t.ToAccountNumber,
		"created_at":        t.CreatedAt.Format(time.RFC3339),
		"can_cancel":        t.CanCancel(),
	}
	if t.ToBankID != nil {
		m["to_bank_id"] = *t.ToBankID
	}
	if t.Description != nil {
		m["description"] = *t.Description
	}
	if t.CompletedAt != nil {
		m["completed_at"] = t.CompletedAt.Format(time.RFC3339)
	}
	if t.ErrorMessage != nil {
		m["error_message"] = *t.ErrorMessage
	}
	if t.VirtualBank != nil {
		m["bank_name"] = t.VirtualBank.BankName
		m["bank_code"] = t.VirtualBank.BankCode
	}
	return m
}

func encodeState(id uuid.UUID, s workflow.State) map[string]interface{} {
	m := map[string]interface{}{
		"workflow_id":     id.String(),
		"phase":           string(s.Phase),
		"attempts":        s.Attempts,
		"outcome_unknown": s.OutcomeUnknown(),
		"abandoned":       s.Abandoned,
	}
	if s.Transfer != nil {
		m["transfer"] = encodeTransfer(s.Transfer)
	}
	if message := s.Message(); message != "" {
		m["message"] = message
	}
	if s.Err != nil {
		m["error"] = map[string]interface{}{
			"kind":      string(s.Err.Kind),
			"code":      s.Err.Code,
			"message":   s.Err.UserMessage(),
			"retryable": s.Err.Retryable(),
		}
	}
	if len(s.ValidationErrors) > 0 {
		errs := make([]interface{}, 0, len(s.ValidationErrors))
		for _, e := range s.ValidationErrors {
			errs = append(errs, e)
		}
		m["validation_errors"] = errs
	}
	return m
}

func encodePage(page *domain.TransferPage) map[string]interface{} {
	transfers := make([]interface{}, 0, len(page.Transfers))
	for i := range page.Transfers {
		transfers = append(transfers, encodeTransfer(&page.Transfers[i]))
	}

	m := map[string]interface{}{
		"transfers": transfers,
		"summary":   encodeSummary(history.Summarize(page.Transfers)),
	}
	if p := page.Pagination; p != nil {
		m["pagination"] = map[string]interface{}{
			"current_page": p.CurrentPage,
			"total_pages":  p.TotalPages,
			"page_size":    p.PageSize,
			"total_items":  p.TotalItems,
			"has_next":     p.HasNext,
			"has_previous": p.HasPrevious,
		}
	}
	return m
}

func encodeSummary(summary *history.Summary) map[string]interface{} {
	return map[string]interface{}{
		"total_transfers":      summary.TotalTransfers,
		"successful_transfers": summary.SuccessfulTransfers,
		"failed_transfers":     summary.FailedTransfers,
		"total_amount":         summary.TotalAmount.String(),
		"average_amount":       summary.AverageAmount.String(),
		"success_rate":         summary.SuccessRate.String(),
	}
}

func encodeValidation(r *domain.ValidationResult) map[string]interface{} {
	errs := make([]interface{}, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	warnings := make([]interface{}, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, w)
	}

	m := map[string]interface{}{
		"valid":    r.Valid,
		"errors":   errs,
		"warnings": warnings,
	}
	if len(r.Violations) > 0 {
		violations := make([]interface{}, 0, len(r.Violations))
		for _, v := range r.Violations {
			violations = append(violations, map[string]interface{}{"field": v.Field, "message": v.Message})
		}
		m["violations"] = violations
	}
	if r.EstimatedFee != nil {
		m["estimated_fee"] = r.EstimatedFee.String()
	}
	if r.EstimatedProcessingTime != nil {
		m["estimated_processing_time"] = *r.EstimatedProcessingTime
	}
	return m
}

func encodeBank(b domain.VirtualBank) map[string]interface{} {
	m := map[string]interface{}{
		"id":                  b.ID,
		"bank_code":           b.BankCode,
		"bank_name":           b.BankName,
		"is_active":           b.IsActive,
		"transfer_fee":        b.TransferFee.String(),
		"processing_time_min": b.ProcessingTimeMin,
		"processing_time_max": b.ProcessingTimeMax,
		"success_rate":        b.SuccessRate.String(),
	}
	if b.BankNameEn != nil {
		m["bank_name_en"] = *b.BankNameEn
	}
	if b.Description != nil {
		m["description"] = *b.Description
	}
	return m
}

func encodeLimits(l *domain.TransferLimits) map[string]interface{} {
	return map[string]interface{}{
		"daily_limit":           l.DailyLimit.String(),
		"per_transaction_limit": l.PerTransactionLimit.String(),
		"daily_used":            l.DailyUsed.String(),
		"remaining_daily":       l.RemainingDaily.String(),
		"remaining_transaction": l.RemainingTransaction.String(),
	}
}

func encodeJournalEntry(e *domain.JournalEntry) map[string]interface{} {
	m := map[string]interface{}{
		"id":          e.ID.String(),
		"event":       string(e.Event),
		"phase":       e.Phase,
		"attempt":     e.Attempt,
		"recorded_at": e.RecordedAt.Format(time.RFC3339Nano),
	}
	if e.TransferID != nil {
		m["transfer_id"] = *e.TransferID
	}
	if e.Status != "" {
		m["status"] = string(e.Status)
	}
	if e.ErrorKind != "" {
		m["error_kind"] = string(e.ErrorKind)
	}
	if e.Message != "" {
		m["message"] = e.Message
	}
	return m
}
