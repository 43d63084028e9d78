package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the workflow gateway service
const ServiceName = "transferflow.v1.TransferWorkflowService"

const (
	methodStartTransfer   = "StartTransfer"
	methodGetWorkflow     = "GetWorkflow"
	methodClearWorkflow   = "ClearWorkflow"
	methodAbandonWorkflow = "AbandonWorkflow"
	methodCancelTransfer  = "CancelTransfer"
	methodListTransfers   = "ListTransfers"
	methodWatchWorkflow   = "WatchWorkflow"

	methodValidateTransfer   = "ValidateTransfer"
	methodGetTransferSummary = "GetTransferSummary"
	methodListBanks          = "ListBanks"
	methodGetTransferLimits  = "GetTransferLimits"
	methodGetWorkflowJournal = "GetWorkflowJournal"
)

// TransferWorkflowServiceServer is the server API for the workflow gateway.
// Messages are google.protobuf.Struct documents with snake_case keys.
type TransferWorkflowServiceServer interface {
	StartTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWorkflow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearWorkflow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AbandonWorkflow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransfers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchWorkflow(*structpb.Struct, WorkflowWatchStream) error
	ValidateTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransferSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBanks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransferLimits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWorkflowJournal(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// WorkflowWatchStream is the server side of WatchWorkflow
type WorkflowWatchStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type workflowWatchStream struct {
	grpc.ServerStream
}

func (s *workflowWatchStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// RegisterTransferWorkflowServiceServer registers srv on s
func RegisterTransferWorkflowServiceServer(s grpc.ServiceRegistrar, srv TransferWorkflowServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unaryHandler(method string, call func(TransferWorkflowServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(TransferWorkflowServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(*structpb.Struct))
			})
		},
	}
}

func watchWorkflowHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TransferWorkflowServiceServer).WatchWorkflow(in, &workflowWatchStream{ServerStream: stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TransferWorkflowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(methodStartTransfer, TransferWorkflowServiceServer.StartTransfer),
		unaryHandler(methodGetWorkflow, TransferWorkflowServiceServer.GetWorkflow),
		unaryHandler(methodClearWorkflow, TransferWorkflowServiceServer.ClearWorkflow),
		unaryHandler(methodAbandonWorkflow, TransferWorkflowServiceServer.AbandonWorkflow),
		unaryHandler(methodCancelTransfer, TransferWorkflowServiceServer.CancelTransfer),
		unaryHandler(methodListTransfers, TransferWorkflowServiceServer.ListTransfers),
		unaryHandler(methodValidateTransfer, TransferWorkflowServiceServer.ValidateTransfer),
		unaryHandler(methodGetTransferSummary, TransferWorkflowServiceServer.GetTransferSummary),
		unaryHandler(methodListBanks, TransferWorkflowServiceServer.ListBanks),
		unaryHandler(methodGetTransferLimits, TransferWorkflowServiceServer.GetTransferLimits),
		unaryHandler(methodGetWorkflowJournal, TransferWorkflowServiceServer.GetWorkflowJournal),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodWatchWorkflow,
			Handler:       watchWorkflowHandler,
			ServerStreams: true,
		},
	},
	Metadata: "transferflow/v1/workflow.proto",
}

// TransferWorkflowServiceClient is a thin client for the workflow gateway
type TransferWorkflowServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTransferWorkflowServiceClient creates a client over cc
func NewTransferWorkflowServiceClient(cc grpc.ClientConnInterface) *TransferWorkflowServiceClient {
	return &TransferWorkflowServiceClient{cc: cc}
}

func (c *TransferWorkflowServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TransferWorkflowServiceClient) StartTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodStartTransfer, in, opts...)
}

func (c *TransferWorkflowServiceClient) GetWorkflow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetWorkflow, in, opts...)
}

func (c *TransferWorkflowServiceClient) ClearWorkflow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodClearWorkflow, in, opts...)
}

func (c *TransferWorkflowServiceClient) AbandonWorkflow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodAbandonWorkflow, in, opts...)
}

func (c *TransferWorkflowServiceClient) CancelTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCancelTransfer, in, opts...)
}

func (c *TransferWorkflowServiceClient) ListTransfers(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListTransfers, in, opts...)
}

func (c *TransferWorkflowServiceClient) ValidateTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodValidateTransfer, in, opts...)
}

func (c *TransferWorkflowServiceClient) GetTransferSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetTransferSummary, in, opts...)
}

func (c *TransferWorkflowServiceClient) ListBanks(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListBanks, in, opts...)
}

func (c *TransferWorkflowServiceClient) GetTransferLimits(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetTransferLimits, in, opts...)
}

func (c *TransferWorkflowServiceClient) GetWorkflowJournal(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetWorkflowJournal, in, opts...)
}

// WatchWorkflow opens the snapshot stream; call Recv until io.EOF
func (c *TransferWorkflowServiceClient) WatchWorkflow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*WorkflowWatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+ServiceName+"/"+methodWatchWorkflow, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WorkflowWatchClient{ClientStream: stream}, nil
}

// WorkflowWatchClient is the client side of WatchWorkflow
type WorkflowWatchClient struct {
	grpc.ClientStream
}

func (x *WorkflowWatchClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
