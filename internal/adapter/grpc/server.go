package grpc

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/usecase/history"
	"github.com/simaogato/transferflow/internal/usecase/reference"
	"github.com/simaogato/transferflow/internal/usecase/workflow"
)

// Server implements the TransferWorkflowService gRPC server
type Server struct {
	Workflows        *workflow.Manager
	HistoryService   *history.HistoryService
	ReferenceService *reference.ReferenceService
}

var _ TransferWorkflowServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(workflows *workflow.Manager, historyService *history.HistoryService, referenceService *reference.ReferenceService) *Server {
	return &Server{
		Workflows:        workflows,
		HistoryService:   historyService,
		ReferenceService: referenceService,
	}
}

// StartTransfer handles the StartTransfer RPC
func (s *Server) StartTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	intent, err := decodeIntent(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	id, state, err := s.Workflows.Start(ctx, intent)
	if err != nil {
		return nil, toStatus(err)
	}

	return respond(encodeState(id, state))
}

// GetWorkflow handles the GetWorkflow RPC
func (s *Server) GetWorkflow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.workflowCall(req, s.Workflows.Get)
}

// ClearWorkflow handles the ClearWorkflow RPC
func (s *Server) ClearWorkflow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.workflowCall(req, s.Workflows.Clear)
}

// AbandonWorkflow handles the AbandonWorkflow RPC
func (s *Server) AbandonWorkflow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.workflowCall(req, s.Workflows.Abandon)
}

func (s *Server) workflowCall(req *structpb.Struct, call func(uuid.UUID) (workflow.State, error)) (*structpb.Struct, error) {
	id, err := workflowIDField(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	state, err := call(id)
	if err != nil {
		return nil, toStatus(err)
	}

	return respond(encodeState(id, state))
}

// CancelTransfer handles the CancelTransfer RPC
func (s *Server) CancelTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, ok, err := int64Field(req, "transfer_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if !ok || id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "transfer_id is required")
	}

	transfer, err := s.HistoryService.Cancel(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}

	return respond(map[string]interface{}{"transfer": encodeTransfer(transfer)})
}

// ListTransfers handles the ListTransfers RPC
func (s *Server) ListTransfers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := decodeFilter(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	page, err := s.HistoryService.List(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}

	return respond(encodePage(page))
}

// ValidateTransfer handles the ValidateTransfer RPC.
// The verdict is advisory; StartTransfer validates again.
func (s *Server) ValidateTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	intent, err := decodeIntent(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.Workflows.Preflight(ctx, intent)
	if err != nil {
		return nil, toStatus(err)
	}

	return respond(map[string]interface{}{"validation": encodeValidation(result)})
}

// GetTransferSummary handles the GetTransferSummary RPC
func (s *Server) GetTransferSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := decodeFilter(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	summary, err := s.HistoryService.Summary(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}

	return respond(map[string]interface{}{"summary": encodeSummary(summary)})
}

// ListBanks handles the ListBanks RPC
func (s *Server) ListBanks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	includeInactive, err := boolField(req, "include_inactive")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	banks, err := s.ReferenceService.Banks(ctx, includeInactive)
	if err != nil {
		return nil, toStatus(err)
	}

	encoded := make([]interface{}, 0, len(banks))
	for _, bank := range banks {
		encoded = append(encoded, encodeBank(bank))
	}
	return respond(map[string]interface{}{"banks": encoded})
}

// GetTransferLimits handles the GetTransferLimits RPC
func (s *Server) GetTransferLimits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, _, err := int64Field(req, "account_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	limits, err := s.ReferenceService.Limits(ctx, accountID)
	if err != nil {
		return nil, toStatus(err)
	}

	return respond(map[string]interface{}{"limits": encodeLimits(limits)})
}

// GetWorkflowJournal handles the GetWorkflowJournal RPC
func (s *Server) GetWorkflowJournal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := workflowIDField(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	entries, err := s.Workflows.Journal(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}

	encoded := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		encoded = append(encoded, encodeJournalEntry(entry))
	}
	return respond(map[string]interface{}{
		"workflow_id": id.String(),
		"entries":     encoded,
	})
}

// WatchWorkflow handles the WatchWorkflow RPC, streaming snapshots until the workflow settles
func (s *Server) WatchWorkflow(req *structpb.Struct, stream WorkflowWatchStream) error {
	id, err := workflowIDField(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	updates, err := s.Workflows.Watch(stream.Context(), id)
	if err != nil {
		return toStatus(err)
	}

	for state := range updates {
		msg, err := respond(encodeState(id, state))
		if err != nil {
			return err
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func respond(m map[string]interface{}) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return msg, nil
}

// toStatus maps workflow and taxonomy errors to gRPC status codes.
// The taxonomy kind prefixes the message so callers can pick retry affordances.
func toStatus(err error) error {
	switch {
	case errors.Is(err, workflow.ErrWorkflowNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, workflow.ErrJournalDisabled):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, history.ErrNotCancellable):
		return status.Error(codes.FailedPrecondition, err.Error())
	}

	te := domain.AsTransferError(err)
	code := codes.Internal
	switch te.Kind {
	case domain.KindValidation:
		code = codes.InvalidArgument
	case domain.KindAPI:
		code = codes.FailedPrecondition
		if te.StatusCode == http.StatusNotFound {
			code = codes.NotFound
		}
	case domain.KindNetwork:
		code = codes.Unavailable
	case domain.KindTimeout:
		code = codes.DeadlineExceeded
	}
	return status.Errorf(code, "%s: %s", te.Kind, te.UserMessage())
}
