package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every failure a transfer workflow can surface
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindAPI        ErrorKind = "API_ERROR"
	KindNetwork    ErrorKind = "NETWORK_ERROR"
	KindTimeout    ErrorKind = "TIMEOUT_ERROR"
	KindUnknown    ErrorKind = "UNKNOWN_ERROR"
)

// Reason identifies a known server rejection that has a localized user message
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonDestinationNotFound Reason = "DESTINATION_NOT_FOUND"
	ReasonInsufficientBalance Reason = "INSUFFICIENT_BALANCE"
	ReasonNonPositiveAmount   Reason = "INVALID_AMOUNT"
	ReasonAmountOverLimit     Reason = "AMOUNT_EXCEEDS_LIMIT"
)

// reasonSubstrings is the compatibility fallback for servers that send no structured code
var reasonSubstrings = []struct {
	substr string
	reason Reason
}{
	{"Destination account not found", ReasonDestinationNotFound},
	{"Insufficient balance", ReasonInsufficientBalance},
	{"Transfer amount must be positive", ReasonNonPositiveAmount},
	{"Transfer amount exceeds maximum limit", ReasonAmountOverLimit},
}

// Messages maps reasons and kinds to the text shown to the user
var Messages = map[Reason]string{
	ReasonDestinationNotFound: "입금 계좌번호를 찾을 수 없습니다. 계좌번호를 다시 확인해주세요.",
	ReasonInsufficientBalance: "잔액이 부족합니다. 이체 금액을 확인해주세요.",
	ReasonNonPositiveAmount:   "이체 금액은 0보다 커야 합니다.",
	ReasonAmountOverLimit:     "이체 금액이 최대 한도를 초과했습니다.",
}

const (
	MessageNetwork = "Unable to connect to server"
	MessageTimeout = "Transfer outcome unknown: the server has not reported a final status yet. Check the transfer history before trying again."
	MessageUnknown = "Failed to process transfer. Please try again."
)

var (
	// ErrInvalidPollBudget is returned when a poll is requested with no attempts to spend
	ErrInvalidPollBudget = errors.New("poll max attempts must be positive")
)

// TransferError is the single normalized error shape of the transfer client and workflow
type TransferError struct {
	Kind       ErrorKind
	Code       string          // Structured server error code, when the envelope carries one
	Message    string          // Server or client message, untranslated
	Details    json.RawMessage // Optional server details, passed through untouched
	StatusCode int             // HTTP status, 0 when no response was received
	Violations []Violation     // VALIDATION_ERROR only
	Err        error           // Underlying cause
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the presentation layer may offer a retry without new input
func (e *TransferError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindTimeout
}

// OutcomeUnknown reports whether the transfer may still complete server-side
func (e *TransferError) OutcomeUnknown() bool {
	return e.Kind == KindTimeout
}

// Reason classifies an API_ERROR, preferring the structured code over message matching
func (e *TransferError) Reason() Reason {
	if e.Kind != KindAPI {
		return ReasonNone
	}
	switch code := Reason(strings.ToUpper(e.Code)); code {
	case ReasonDestinationNotFound, ReasonInsufficientBalance, ReasonNonPositiveAmount, ReasonAmountOverLimit:
		return code
	}
	for _, m := range reasonSubstrings {
		if strings.Contains(e.Message, m.substr) {
			return m.reason
		}
	}
	return ReasonNone
}

// UserMessage is the single human-readable message for this failure
func (e *TransferError) UserMessage() string {
	switch e.Kind {
	case KindValidation:
		if len(e.Violations) > 0 {
			return e.Violations[0].Message
		}
	case KindAPI:
		if msg, ok := Messages[e.Reason()]; ok {
			return msg
		}
	case KindNetwork:
		return MessageNetwork
	case KindTimeout:
		return MessageTimeout
	case KindUnknown:
		return MessageUnknown
	}
	if e.Message != "" {
		return e.Message
	}
	return MessageUnknown
}

// NewValidationError builds a VALIDATION_ERROR from a failed local validation
func NewValidationError(result ValidationResult) *TransferError {
	return &TransferError{
		Kind:       KindValidation,
		Message:    strings.Join(result.Errors, "; "),
		Violations: result.Violations,
	}
}

// NewAPIError builds an API_ERROR from a decoded server error envelope
func NewAPIError(statusCode int, code, message string, details json.RawMessage) *TransferError {
	return &TransferError{
		Kind:       KindAPI,
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: statusCode,
	}
}

// NewNetworkError builds a NETWORK_ERROR for a request that received no response
func NewNetworkError(err error) *TransferError {
	return &TransferError{Kind: KindNetwork, Message: MessageNetwork, Err: err}
}

// NewTimeoutError builds a TIMEOUT_ERROR once the status polling budget is spent
func NewTimeoutError(attempts int, last error) *TransferError {
	return &TransferError{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("transfer status polling timed out after %d attempts", attempts),
		Err:     last,
	}
}

// NewUnknownError builds an UNKNOWN_ERROR for anything that fits no other kind
func NewUnknownError(statusCode int, message string, err error) *TransferError {
	if message == "" {
		message = "An unknown error occurred"
	}
	return &TransferError{Kind: KindUnknown, Message: message, StatusCode: statusCode, Err: err}
}

// AsTransferError normalizes any error into the taxonomy; nil stays nil
func AsTransferError(err error) *TransferError {
	if err == nil {
		return nil
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te
	}
	return NewUnknownError(0, err.Error(), err)
}

// KindOf returns the taxonomy kind of err, or "" for nil
func KindOf(err error) ErrorKind {
	if te := AsTransferError(err); te != nil {
		return te.Kind
	}
	return ""
}
