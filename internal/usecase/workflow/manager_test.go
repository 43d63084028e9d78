package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/domain/mocks"
	"github.com/simaogato/transferflow/internal/usecase/poller"
	"github.com/simaogato/transferflow/internal/usecase/workflow"
)

// drain collects snapshots until the watch channel closes
func drain(t *testing.T, updates <-chan workflow.State) []workflow.State {
	t.Helper()
	var states []workflow.State
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return states
			}
			states = append(states, s)
		case <-timeout:
			t.Fatal("watch channel did not close")
			return states
		}
	}
}

func TestManager_StartAndWatchToCompletion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accepted := pendingTransfer()
	release := make(chan struct{})

	api := mocks.NewMockTransferAPI(ctrl)
	api.EXPECT().Create(gomock.Any(), gomock.Any()).Return(accepted, nil).Times(1)
	api.EXPECT().Get(gomock.Any(), int64(77)).Return(accepted.WithStatus(domain.TransferStatusCompleted), nil)

	accounts := mocks.NewMockAccountProvider(ctrl)
	accounts.EXPECT().Account(gomock.Any(), int64(1)).Return(sourceAccount(), nil)

	tracker := &fakeTracker{poll: func(ctx context.Context, _ int64, _ poller.Policy, _ poller.AttemptObserver) (poller.Result, error) {
		<-release
		return poller.Result{Status: domain.TransferStatusCompleted, Attempts: 4}, nil
	}}

	m := workflow.NewManager(api, accounts, tracker, testConfig())
	defer m.Close()

	id, _, err := m.Start(context.Background(), validIntent())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	updates, err := m.Watch(context.Background(), id)
	require.NoError(t, err)
	close(release)

	states := drain(t, updates)
	require.NotEmpty(t, states)
	final := states[len(states)-1]
	assert.Equal(t, workflow.PhaseCompleted, final.Phase)
	assert.Equal(t, domain.TransferStatusCompleted, final.Transfer.Status)

	got, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, workflow.PhaseCompleted, got.Phase)

	cleared, err := m.Clear(id)
	require.NoError(t, err)
	assert.Equal(t, workflow.PhaseIdle, cleared.Phase)

	_, err = m.Get(id)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}

func TestManager_UnknownSourceAccountIsAValidationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mocks.NewMockTransferAPI(ctrl)
	accounts := mocks.NewMockAccountProvider(ctrl)
	accounts.EXPECT().Account(gomock.Any(), int64(1)).
		Return(nil, domain.NewAPIError(404, "", "Account not found", nil))

	m := workflow.NewManager(api, accounts, &fakeTracker{}, testConfig())
	defer m.Close()

	id, _, err := m.Start(context.Background(), validIntent())
	require.NoError(t, err)

	updates, err := m.Watch(context.Background(), id)
	require.NoError(t, err)
	states := drain(t, updates)

	require.NotEmpty(t, states)
	final := states[len(states)-1]
	assert.Equal(t, workflow.PhaseIdle, final.Phase)
	assert.Equal(t, []string{"Source account is not available"}, final.ValidationErrors)
}

func TestManager_AccountLookupFailureIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountProvider(ctrl)
	accounts.EXPECT().Account(gomock.Any(), int64(1)).
		Return(nil, domain.NewNetworkError(errors.New("connection refused")))

	m := workflow.NewManager(mocks.NewMockTransferAPI(ctrl), accounts, &fakeTracker{}, testConfig())
	defer m.Close()

	_, _, err := m.Start(context.Background(), validIntent())

	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestManager_AbandonStopsTrackingWithoutFailing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	polling := make(chan struct{})
	api := mocks.NewMockTransferAPI(ctrl)
	api.EXPECT().Create(gomock.Any(), gomock.Any()).Return(pendingTransfer(), nil).Times(1)

	accounts := mocks.NewMockAccountProvider(ctrl)
	accounts.EXPECT().Account(gomock.Any(), int64(1)).Return(sourceAccount(), nil)

	tracker := &fakeTracker{poll: func(ctx context.Context, _ int64, _ poller.Policy, _ poller.AttemptObserver) (poller.Result, error) {
		close(polling)
		<-ctx.Done()
		return poller.Result{Status: domain.TransferStatusPending, Attempts: 1, Abandoned: true}, nil
	}}

	m := workflow.NewManager(api, accounts, tracker, testConfig())
	defer m.Close()

	// A cancelled request context must not abandon the run
	reqCtx, cancelReq := context.WithCancel(context.Background())
	id, _, err := m.Start(reqCtx, validIntent())
	require.NoError(t, err)
	cancelReq()

	<-polling
	state, err := m.Abandon(id)
	require.NoError(t, err)
	assert.Equal(t, workflow.PhaseTracking, state.Phase)
	assert.True(t, state.Abandoned)
	assert.Nil(t, state.Err)

	_, err = m.Abandon(id)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}

func TestManager_UnknownWorkflow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := workflow.NewManager(mocks.NewMockTransferAPI(ctrl), mocks.NewMockAccountProvider(ctrl), &fakeTracker{}, testConfig())
	id := uuid.New()

	_, err := m.Get(id)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	_, err = m.Clear(id)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	_, err = m.Watch(context.Background(), id)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}

func TestManager_ClearRefusesRunningWorkflow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	polling := make(chan struct{})
	api := mocks.NewMockTransferAPI(ctrl)
	api.EXPECT().Create(gomock.Any(), gomock.Any()).Return(pendingTransfer(), nil)

	accounts := mocks.NewMockAccountProvider(ctrl)
	accounts.EXPECT().Account(gomock.Any(), gomock.Any()).Return(sourceAccount(), nil)

	tracker := &fakeTracker{poll: func(ctx context.Context, _ int64, _ poller.Policy, _ poller.AttemptObserver) (poller.Result, error) {
		close(polling)
		<-ctx.Done()
		return poller.Result{Status: domain.TransferStatusPending, Abandoned: true}, nil
	}}

	m := workflow.NewManager(api, accounts, tracker, testConfig())
	defer m.Close()

	id, _, err := m.Start(context.Background(), validIntent())
	require.NoError(t, err)
	<-polling

	_, err = m.Clear(id)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	state, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, workflow.PhaseTracking, state.Phase)
}

func TestManager_Preflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fee := decimal.NewFromInt(500)
	api := mocks.NewMockTransferAPI(ctrl)
	api.EXPECT().Validate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, intent domain.TransferIntent) (*domain.ValidationResult, error) {
		assert.Equal(t, "9876543210", intent.ToAccountNumber)
		return &domain.ValidationResult{Valid: true, Warnings: []string{"Large transfer"}, EstimatedFee: &fee}, nil
	}).Times(1)

	accounts := mocks.NewMockAccountProvider(ctrl)
	accounts.EXPECT().Account(gomock.Any(), int64(1)).Return(sourceAccount(), nil)

	m := workflow.NewManager(api, accounts, &fakeTracker{}, testConfig())
	defer m.Close()

	intent := validIntent()
	intent.ToAccountNumber = "9876543210 "
	result, err := m.Preflight(context.Background(), intent)

	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"Large transfer"}, result.Warnings)
	assert.True(t, fee.Equal(*result.EstimatedFee))
}

func TestManager_Preflight_LocalViolationsSkipServer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No Validate expectation: a call fails the test
	api := mocks.NewMockTransferAPI(ctrl)
	accounts := mocks.NewMockAccountProvider(ctrl)
	accounts.EXPECT().Account(gomock.Any(), int64(1)).Return(sourceAccount(), nil)

	m := workflow.NewManager(api, accounts, &fakeTracker{}, testConfig())
	defer m.Close()

	intent := validIntent()
	intent.Amount = decimal.Zero
	result, err := m.Preflight(context.Background(), intent)

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"Amount must be a positive number"}, result.Errors)
}

func TestManager_Journal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	entries := []*domain.JournalEntry{
		{ID: uuid.New(), WorkflowID: id, Event: domain.JournalEventSubmitted},
		{ID: uuid.New(), WorkflowID: id, Event: domain.JournalEventTerminal},
	}
	journal := mocks.NewMockJournalRepository(ctrl)
	journal.EXPECT().ListByWorkflow(gomock.Any(), id).Return(entries, nil)

	cfg := testConfig()
	cfg.Journal = journal
	m := workflow.NewManager(mocks.NewMockTransferAPI(ctrl), mocks.NewMockAccountProvider(ctrl), &fakeTracker{}, cfg)
	defer m.Close()

	got, err := m.Journal(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestManager_Journal_Disabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := workflow.NewManager(mocks.NewMockTransferAPI(ctrl), mocks.NewMockAccountProvider(ctrl), &fakeTracker{}, testConfig())
	defer m.Close()

	_, err := m.Journal(context.Background(), uuid.New())

	assert.ErrorIs(t, err, workflow.ErrJournalDisabled)
}
