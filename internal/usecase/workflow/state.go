package workflow

import (
	"errors"
	"fmt"

	"github.com/simaogato/transferflow/internal/domain"
)

// Phase is the position of a workflow in its lifecycle
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseValidating Phase = "VALIDATING"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseTracking   Phase = "TRACKING"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseFailed     Phase = "FAILED"
	PhaseCancelled  Phase = "CANCELLED"
)

// IsTerminal reports whether the phase only accepts Clear
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// phaseFor maps a terminal transfer status to its terminal phase
func phaseFor(status domain.TransferStatus) Phase {
	switch status {
	case domain.TransferStatusCompleted:
		return PhaseCompleted
	case domain.TransferStatusCancelled:
		return PhaseCancelled
	default:
		return PhaseFailed
	}
}

// ErrInvalidTransition is returned when an event is not accepted in the current phase
var ErrInvalidTransition = errors.New("invalid workflow transition")

// State is an immutable snapshot of one workflow.
// Transfer is the latest server snapshot; it is replaced, never edited.
type State struct {
	Phase            Phase
	Intent           *domain.TransferIntent
	Transfer         *domain.Transfer
	Err              *domain.TransferError
	ValidationErrors []string // Ordered local violations after a rejected submission
	Attempts         int      // Failed status reads observed while tracking
	Abandoned        bool     // Tracking stopped by the caller before a terminal status was seen
}

// OutcomeUnknown reports whether tracking stopped before the server settled the transfer
func (s State) OutcomeUnknown() bool {
	return s.Abandoned || (s.Err != nil && s.Err.OutcomeUnknown())
}

// Message is the single user-facing message of a failed or rejected workflow
func (s State) Message() string {
	if s.Err != nil {
		return s.Err.UserMessage()
	}
	if s.Phase == PhaseFailed && s.Transfer != nil && s.Transfer.ErrorMessage != nil {
		return *s.Transfer.ErrorMessage
	}
	return ""
}

// EventType names what happened to a workflow
type EventType string

const (
	EventSubmit         EventType = "SUBMIT"
	EventValidated      EventType = "VALIDATED"
	EventRejected       EventType = "REJECTED"
	EventAccepted       EventType = "ACCEPTED"
	EventCreateFailed   EventType = "CREATE_FAILED"
	EventPollFailed     EventType = "POLL_FAILED"
	EventSettled        EventType = "SETTLED"
	EventTrackingFailed EventType = "TRACKING_FAILED"
	EventAbandoned      EventType = "ABANDONED"
	EventClear          EventType = "CLEAR"
)

// Event carries the payload of one transition; only the fields its Type needs are read
type Event struct {
	Type       EventType
	Intent     *domain.TransferIntent
	Validation *domain.ValidationResult
	Transfer   *domain.Transfer
	Err        *domain.TransferError
	Attempt    int
}

// Transition computes the next state. It performs no I/O and never mutates s.
func Transition(s State, e Event) (State, error) {
	switch e.Type {
	case EventSubmit:
		if s.Phase != PhaseIdle || e.Intent == nil {
			break
		}
		intent := *e.Intent
		return State{Phase: PhaseValidating, Intent: &intent}, nil

	case EventValidated:
		if s.Phase != PhaseValidating {
			break
		}
		s.Phase = PhaseSubmitting
		return s, nil

	case EventRejected:
		if s.Phase != PhaseValidating || e.Validation == nil {
			break
		}
		s.Phase = PhaseIdle
		s.ValidationErrors = append([]string(nil), e.Validation.Errors...)
		s.Err = e.Err
		if s.Err == nil {
			s.Err = domain.NewValidationError(*e.Validation)
		}
		return s, nil

	case EventAccepted:
		if s.Phase != PhaseSubmitting || e.Transfer == nil {
			break
		}
		s.Transfer = e.Transfer
		if e.Transfer.Status.IsTerminal() {
			s.Phase = phaseFor(e.Transfer.Status)
		} else {
			s.Phase = PhaseTracking
		}
		return s, nil

	case EventCreateFailed:
		if s.Phase != PhaseSubmitting || e.Err == nil {
			break
		}
		s.Phase = PhaseFailed
		s.Err = e.Err
		return s, nil

	case EventPollFailed:
		if s.Phase != PhaseTracking {
			break
		}
		s.Attempts = e.Attempt
		return s, nil

	case EventSettled:
		if s.Phase != PhaseTracking || e.Transfer == nil || !e.Transfer.Status.IsTerminal() {
			break
		}
		s.Phase = phaseFor(e.Transfer.Status)
		s.Transfer = e.Transfer
		return s, nil

	case EventTrackingFailed:
		if s.Phase != PhaseTracking || e.Err == nil {
			break
		}
		s.Phase = PhaseFailed
		s.Err = e.Err
		return s, nil

	case EventAbandoned:
		if s.Phase != PhaseTracking || s.Abandoned {
			break
		}
		s.Abandoned = true
		return s, nil

	case EventClear:
		if s.Phase != PhaseIdle && !s.Phase.IsTerminal() && !(s.Phase == PhaseTracking && s.Abandoned) {
			break
		}
		return State{Phase: PhaseIdle}, nil
	}

	return s, fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, e.Type, s.Phase)
}
