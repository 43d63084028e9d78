package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/transferflow/internal/domain"
)

var (
	// ErrWorkflowNotFound is returned for ids the Manager does not hold
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrJournalDisabled is returned when journal entries are read without a configured journal
	ErrJournalDisabled = errors.New("workflow journal is not configured")
)

type run struct {
	workflow *Workflow
	cancel   context.CancelFunc
	done     chan struct{}
}

// Manager runs many independent workflows concurrently, each in its own goroutine.
// All workflows share the same stateless TransferAPI.
type Manager struct {
	API      domain.TransferAPI
	Accounts domain.AccountProvider
	Tracker  Tracker
	Config   Config

	mu   sync.RWMutex
	runs map[uuid.UUID]*run
	wg   sync.WaitGroup
}

// NewManager creates a new Manager instance
func NewManager(api domain.TransferAPI, accounts domain.AccountProvider, tracker Tracker, cfg Config) *Manager {
	return &Manager{
		API:      api,
		Accounts: accounts,
		Tracker:  tracker,
		Config:   cfg.withDefaults(),
		runs:     make(map[uuid.UUID]*run),
	}
}

// Start looks up the source account and launches a workflow for intent.
// The run keeps the values of ctx (credentials, trace) but not its cancellation;
// use Abandon to stop it.
func (m *Manager) Start(ctx context.Context, intent domain.TransferIntent) (uuid.UUID, State, error) {
	account, err := m.sourceAccount(ctx, intent.FromAccountID)
	if err != nil {
		return uuid.Nil, State{}, err
	}

	wf := NewWorkflow(m.API, m.Tracker, m.Config)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{workflow: wf, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.runs[wf.ID] = r
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(r.done)
		defer cancel()
		_, _ = wf.Submit(runCtx, intent, account)
	}()

	return wf.ID, wf.State(), nil
}

// Preflight checks intent without starting a workflow.
// A locally invalid intent is reported without a network call; otherwise the server's
// advisory verdict is returned.
func (m *Manager) Preflight(ctx context.Context, intent domain.TransferIntent) (*domain.ValidationResult, error) {
	intent = intent.Normalized()

	account, err := m.sourceAccount(ctx, intent.FromAccountID)
	if err != nil {
		return nil, err
	}

	local := intent.Validate(account, m.Config.Limits)
	if !local.Valid {
		return &local, nil
	}

	result, err := m.API.Validate(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("failed to validate transfer: %w", err)
	}
	return result, nil
}

// Journal returns the recorded entries of a workflow, oldest first.
// Entries outlive the workflow, so cleared and abandoned ids still resolve.
func (m *Manager) Journal(ctx context.Context, id uuid.UUID) ([]*domain.JournalEntry, error) {
	if m.Config.Journal == nil {
		return nil, ErrJournalDisabled
	}

	entries, err := m.Config.Journal.ListByWorkflow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow journal: %w", err)
	}
	return entries, nil
}

// sourceAccount fetches the validation snapshot; an unknown account is left to validation
func (m *Manager) sourceAccount(ctx context.Context, id int64) (*domain.AccountSnapshot, error) {
	if id <= 0 {
		return nil, nil
	}
	account, err := m.Accounts.Account(ctx, id)
	if err != nil {
		if te := domain.AsTransferError(err); te.Kind == domain.KindAPI && te.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load source account: %w", err)
	}
	return account, nil
}

// Get returns the current snapshot of a workflow
func (m *Manager) Get(id uuid.UUID) (State, error) {
	r, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}
	return r.workflow.State(), nil
}

// Clear returns a finished workflow to Idle and forgets it
func (m *Manager) Clear(id uuid.UUID) (State, error) {
	r, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}

	state, err := r.workflow.Clear()
	if err != nil {
		return state, err
	}
	m.forget(id)
	return state, nil
}

// Abandon stops observing a workflow and forgets it.
// The transfer itself is untouched and may still settle server-side.
func (m *Manager) Abandon(id uuid.UUID) (State, error) {
	r, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}

	r.cancel()
	<-r.done
	m.forget(id)
	return r.workflow.State(), nil
}

// Watch streams snapshots of a workflow, starting with the current one.
// The channel closes once the workflow is terminal, its run ends, or ctx is done.
func (m *Manager) Watch(ctx context.Context, id uuid.UUID) (<-chan State, error) {
	r, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	sub, unsubscribe := r.workflow.Subscribe()
	out := make(chan State)

	go func() {
		defer close(out)
		defer unsubscribe()

		send := func(s State) bool {
			select {
			case out <- s:
				return !s.Phase.IsTerminal()
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case s := <-sub:
				if !send(s) {
					return
				}
			case <-r.done:
				// The final snapshot is published before the run ends
				select {
				case s := <-sub:
					send(s)
				default:
				}
				return
			}
		}
	}()

	return out, nil
}

// Close abandons every running workflow and waits for their goroutines
func (m *Manager) Close() {
	m.mu.Lock()
	for _, r := range m.runs {
		r.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) lookup(id uuid.UUID) (*run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return r, nil
}

func (m *Manager) forget(id uuid.UUID) {
	m.mu.Lock()
	delete(m.runs, id)
	m.mu.Unlock()
}
