package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/usecase/poller"
)

var tracer = otel.Tracer("github.com/simaogato/transferflow/internal/usecase/workflow")

// Tracker observes a submitted transfer until it settles; *poller.StatusPoller satisfies it
type Tracker interface {
	Poll(ctx context.Context, transferID int64, policy poller.Policy, observe poller.AttemptObserver) (poller.Result, error)
}

// Config holds the collaborators and limits shared by workflows
type Config struct {
	Policy  poller.Policy
	Limits  domain.Limits
	Journal domain.JournalRepository // Optional
	Logger  *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Policy == (poller.Policy{}) {
		c.Policy = poller.DefaultPolicy
	}
	if c.Policy.MaxAttempts <= 0 {
		c.Policy.MaxAttempts = poller.DefaultPolicy.MaxAttempts
	}
	if c.Policy.Interval < 0 {
		c.Policy.Interval = poller.DefaultPolicy.Interval
	}
	if c.Limits == (domain.Limits{}) {
		c.Limits = domain.DefaultLimits
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Workflow owns the lifecycle of one transfer, from intent to terminal outcome
type Workflow struct {
	ID uuid.UUID

	api     domain.TransferAPI
	tracker Tracker
	cfg     Config

	mu          sync.Mutex
	state       State
	subscribers map[chan State]struct{}
}

// NewWorkflow creates an idle workflow
func NewWorkflow(api domain.TransferAPI, tracker Tracker, cfg Config) *Workflow {
	return &Workflow{
		ID:          uuid.New(),
		api:         api,
		tracker:     tracker,
		cfg:         cfg.withDefaults(),
		state:       State{Phase: PhaseIdle},
		subscribers: make(map[chan State]struct{}),
	}
}

// State returns the current snapshot
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Subscribe returns a channel that always holds the latest snapshot, starting with the current one.
// Intermediate snapshots may be skipped by a slow reader. The returned func releases the channel.
func (w *Workflow) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	w.mu.Lock()
	ch <- w.state
	w.subscribers[ch] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subscribers, ch)
			w.mu.Unlock()
			close(ch)
		})
	}
}

// Clear returns a terminal, rejected or abandoned workflow to Idle
func (w *Workflow) Clear() (State, error) {
	return w.apply(Event{Type: EventClear})
}

// Submit runs one transfer through validation, submission and tracking.
// Logic:
//  1. Normalize the intent once; the normalized value is both validated and submitted
//  2. Validate the intent against the account snapshot in memory; violations end in Idle
//  3. Create the transfer exactly once; a failure ends in Failed and is never retried
//  4. A terminal status in the create response ends the run
//  5. Otherwise track the status until it settles or the poll budget runs out
//
// Transfer failures are reported in the returned State. The error is only set when the
// workflow is not Idle. Cancelling ctx while tracking leaves the workflow in Tracking,
// marked Abandoned; Clear then returns it to Idle while the transfer may still settle.
func (w *Workflow) Submit(ctx context.Context, intent domain.TransferIntent, account *domain.AccountSnapshot) (State, error) {
	intent = intent.Normalized()

	ctx, span := tracer.Start(ctx, "workflow.submit", trace.WithAttributes(
		attribute.String("workflow.id", w.ID.String()),
		attribute.Int64("transfer.from_account_id", intent.FromAccountID),
		attribute.String("transfer.type", string(intent.TransferType())),
	))
	defer span.End()

	if _, err := w.apply(Event{Type: EventSubmit, Intent: &intent}); err != nil {
		return w.State(), err
	}

	result := intent.Validate(account, w.cfg.Limits)
	if !result.Valid {
		state, err := w.apply(Event{Type: EventRejected, Validation: &result})
		span.SetStatus(codes.Error, string(domain.KindValidation))
		return state, err
	}
	if _, err := w.apply(Event{Type: EventValidated}); err != nil {
		return w.State(), err
	}

	transfer, err := w.api.Create(ctx, intent)
	if err != nil {
		te := domain.AsTransferError(err)
		span.RecordError(te)
		span.SetStatus(codes.Error, string(te.Kind))
		w.record(ctx, domain.JournalEventRejected, nil, "", te, 0)
		return w.apply(Event{Type: EventCreateFailed, Err: te})
	}

	span.SetAttributes(
		attribute.Int64("transfer.id", transfer.ID),
		attribute.String("transfer.reference_number", transfer.ReferenceNumber),
	)
	w.record(ctx, domain.JournalEventSubmitted, &transfer.ID, transfer.Status, nil, 0)

	state, err := w.apply(Event{Type: EventAccepted, Transfer: transfer})
	if err != nil || state.Phase != PhaseTracking {
		if state.Phase.IsTerminal() {
			w.record(ctx, domain.JournalEventTerminal, &transfer.ID, transfer.Status, nil, 0)
		}
		return state, err
	}
	return w.track(ctx, transfer)
}

func (w *Workflow) track(ctx context.Context, accepted *domain.Transfer) (State, error) {
	ctx, span := tracer.Start(ctx, "workflow.track", trace.WithAttributes(
		attribute.Int64("transfer.id", accepted.ID),
		attribute.Int("poll.max_attempts", w.cfg.Policy.MaxAttempts),
		attribute.Int64("poll.interval_ms", w.cfg.Policy.Interval.Milliseconds()),
	))
	defer span.End()

	result, err := w.tracker.Poll(ctx, accepted.ID, w.cfg.Policy, func(a poller.Attempt) {
		w.record(ctx, domain.JournalEventPollFailed, &a.TransferID, "", domain.AsTransferError(a.Err), a.Number)
		if _, err := w.apply(Event{Type: EventPollFailed, Attempt: a.Number}); err != nil {
			w.cfg.Logger.Error("failed to record poll attempt", slog.String("workflow_id", w.ID.String()), slog.String("error", err.Error()))
		}
	})
	span.SetAttributes(attribute.Int("poll.attempts", result.Attempts))

	if err != nil {
		te := domain.AsTransferError(err)
		span.RecordError(te)
		span.SetStatus(codes.Error, string(te.Kind))
		w.record(ctx, domain.JournalEventTrackingLost, &accepted.ID, result.Status, te, result.Attempts)
		return w.apply(Event{Type: EventTrackingFailed, Err: te})
	}

	if result.Abandoned {
		w.record(ctx, domain.JournalEventTrackingCancel, &accepted.ID, result.Status, nil, result.Attempts)
		return w.apply(Event{Type: EventAbandoned})
	}

	snapshot := accepted.WithStatus(result.Status)
	fresh, err := w.api.Get(ctx, accepted.ID)
	switch {
	case err != nil:
		w.cfg.Logger.Warn("failed to refresh settled transfer",
			slog.String("workflow_id", w.ID.String()),
			slog.Int64("transfer_id", accepted.ID),
			slog.String("kind", string(domain.KindOf(err))),
			slog.String("error", err.Error()),
		)
	case fresh.Status == result.Status:
		snapshot = fresh
	}

	w.record(ctx, domain.JournalEventTerminal, &accepted.ID, snapshot.Status, nil, result.Attempts)
	return w.apply(Event{Type: EventSettled, Transfer: snapshot})
}

// apply transitions the state and publishes the new snapshot to subscribers
func (w *Workflow) apply(e Event) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := Transition(w.state, e)
	if err != nil {
		return w.state, err
	}
	w.state = next

	for ch := range w.subscribers {
		select {
		case ch <- next:
		default:
			// Replace the unread snapshot with the newer one
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
	return next, nil
}

// record appends a journal entry; journal failures never affect the workflow
func (w *Workflow) record(ctx context.Context, event domain.JournalEvent, transferID *int64, status domain.TransferStatus, te *domain.TransferError, attempt int) {
	if w.cfg.Journal == nil {
		return
	}

	entry := &domain.JournalEntry{
		ID:         uuid.New(),
		WorkflowID: w.ID,
		TransferID: transferID,
		Event:      event,
		Phase:      string(w.State().Phase),
		Status:     status,
		Attempt:    attempt,
		RecordedAt: time.Now().UTC(),
	}
	if te != nil {
		entry.ErrorKind = te.Kind
		entry.Message = te.Message
	}

	if err := w.cfg.Journal.Append(context.WithoutCancel(ctx), entry); err != nil {
		w.cfg.Logger.Error("failed to append journal entry",
			slog.String("workflow_id", w.ID.String()),
			slog.String("event", string(event)),
			slog.String("error", err.Error()),
		)
	}
}
