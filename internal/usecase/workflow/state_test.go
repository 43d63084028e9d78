package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferflow/internal/domain"
)

func TestTransition(t *testing.T) {
	intent := &domain.TransferIntent{FromAccountID: 1, ToAccountNumber: "9876543210", Amount: decimal.NewFromInt(100)}
	pending := &domain.Transfer{ID: 9, Status: domain.TransferStatusPending}
	completed := pending.WithStatus(domain.TransferStatusCompleted)
	cancelled := pending.WithStatus(domain.TransferStatusCancelled)
	failed := pending.WithStatus(domain.TransferStatusFailed)
	apiErr := domain.NewAPIError(400, "", "Insufficient balance", nil)
	timeoutErr := domain.NewTimeoutError(30, nil)
	rejection := &domain.ValidationResult{Valid: false, Errors: []string{"Amount must be a positive number"}}

	tests := []struct {
		name      string
		from      State
		event     Event
		wantPhase Phase
		wantErr   bool
	}{
		{"submit from idle", State{Phase: PhaseIdle}, Event{Type: EventSubmit, Intent: intent}, PhaseValidating, false},
		{"submit without intent", State{Phase: PhaseIdle}, Event{Type: EventSubmit}, PhaseIdle, true},
		{"submit while tracking", State{Phase: PhaseTracking}, Event{Type: EventSubmit, Intent: intent}, PhaseTracking, true},
		{"submit from completed", State{Phase: PhaseCompleted}, Event{Type: EventSubmit, Intent: intent}, PhaseCompleted, true},
		{"validated", State{Phase: PhaseValidating}, Event{Type: EventValidated}, PhaseSubmitting, false},
		{"rejected returns to idle", State{Phase: PhaseValidating}, Event{Type: EventRejected, Validation: rejection}, PhaseIdle, false},
		{"accepted pending tracks", State{Phase: PhaseSubmitting}, Event{Type: EventAccepted, Transfer: pending}, PhaseTracking, false},
		{"accepted completed is terminal", State{Phase: PhaseSubmitting}, Event{Type: EventAccepted, Transfer: completed}, PhaseCompleted, false},
		{"accepted failed is terminal", State{Phase: PhaseSubmitting}, Event{Type: EventAccepted, Transfer: failed}, PhaseFailed, false},
		{"create failed", State{Phase: PhaseSubmitting}, Event{Type: EventCreateFailed, Err: apiErr}, PhaseFailed, false},
		{"create failed outside submitting", State{Phase: PhaseValidating}, Event{Type: EventCreateFailed, Err: apiErr}, PhaseValidating, true},
		{"poll failed keeps tracking", State{Phase: PhaseTracking}, Event{Type: EventPollFailed, Attempt: 2}, PhaseTracking, false},
		{"settled completed", State{Phase: PhaseTracking}, Event{Type: EventSettled, Transfer: completed}, PhaseCompleted, false},
		{"settled cancelled", State{Phase: PhaseTracking}, Event{Type: EventSettled, Transfer: cancelled}, PhaseCancelled, false},
		{"settled with non-terminal status", State{Phase: PhaseTracking}, Event{Type: EventSettled, Transfer: pending}, PhaseTracking, true},
		{"tracking timed out", State{Phase: PhaseTracking}, Event{Type: EventTrackingFailed, Err: timeoutErr}, PhaseFailed, false},
		{"clear terminal", State{Phase: PhaseFailed, Err: apiErr}, Event{Type: EventClear}, PhaseIdle, false},
		{"clear idle", State{Phase: PhaseIdle}, Event{Type: EventClear}, PhaseIdle, false},
		{"abandoned keeps tracking", State{Phase: PhaseTracking}, Event{Type: EventAbandoned}, PhaseTracking, false},
		{"abandoned outside tracking", State{Phase: PhaseSubmitting}, Event{Type: EventAbandoned}, PhaseSubmitting, true},
		{"clear abandoned tracking", State{Phase: PhaseTracking, Abandoned: true}, Event{Type: EventClear}, PhaseIdle, false},
		{"clear while tracking", State{Phase: PhaseTracking}, Event{Type: EventClear}, PhaseTracking, true},
		{"clear while submitting", State{Phase: PhaseSubmitting}, Event{Type: EventClear}, PhaseSubmitting, true},
		{"unknown event", State{Phase: PhaseIdle}, Event{Type: "BOGUS"}, PhaseIdle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantPhase, got.Phase)
		})
	}
}

func TestTransition_DoesNotMutateInput(t *testing.T) {
	from := State{Phase: PhaseTracking, Transfer: &domain.Transfer{ID: 9, Status: domain.TransferStatusPending}}
	settled := from.Transfer.WithStatus(domain.TransferStatusCompleted)

	next, err := Transition(from, Event{Type: EventSettled, Transfer: settled})

	require.NoError(t, err)
	assert.Equal(t, PhaseTracking, from.Phase)
	assert.Equal(t, domain.TransferStatusPending, from.Transfer.Status)
	assert.Same(t, settled, next.Transfer)
}

func TestTransition_RejectedCarriesOrderedErrors(t *testing.T) {
	result := domain.ValidationResult{
		Errors:     []string{"Please enter destination account number", "Amount must be a positive number"},
		Violations: []domain.Violation{{Field: domain.FieldToAccountNumber, Message: "Please enter destination account number"}},
	}

	next, err := Transition(State{Phase: PhaseValidating}, Event{Type: EventRejected, Validation: &result})

	require.NoError(t, err)
	assert.Equal(t, result.Errors, next.ValidationErrors)
	require.NotNil(t, next.Err)
	assert.Equal(t, domain.KindValidation, next.Err.Kind)
	assert.Equal(t, "Please enter destination account number", next.Message())
}

func TestTransition_ClearResetsEverything(t *testing.T) {
	from := State{
		Phase:    PhaseFailed,
		Intent:   &domain.TransferIntent{FromAccountID: 1},
		Transfer: &domain.Transfer{ID: 1},
		Err:      domain.NewTimeoutError(3, nil),
		Attempts: 3,
	}

	next, err := Transition(from, Event{Type: EventClear})

	require.NoError(t, err)
	assert.Equal(t, State{Phase: PhaseIdle}, next)
}

func TestState_OutcomeUnknownAndMessage(t *testing.T) {
	reason := "Destination bank unavailable"

	timedOut := State{Phase: PhaseFailed, Err: domain.NewTimeoutError(30, nil)}
	assert.True(t, timedOut.OutcomeUnknown())
	assert.Equal(t, domain.MessageTimeout, timedOut.Message())

	serverFailed := State{Phase: PhaseFailed, Transfer: &domain.Transfer{Status: domain.TransferStatusFailed, ErrorMessage: &reason}}
	assert.False(t, serverFailed.OutcomeUnknown())
	assert.Equal(t, reason, serverFailed.Message())

	assert.Empty(t, State{Phase: PhaseCompleted}.Message())
}
