package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/transferflow/internal/adapter/transferapi"
)

// CredentialHeader carries the end user's transfer API credential.
// It is forwarded as the bearer token of every outbound transfer API request.
const CredentialHeader = "x-transfer-credential"

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
// If valid, it calls the handler with the forwarded transfer credential in context.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, err := authorize(ctx, validToken)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor is the streaming counterpart of AuthInterceptor
func StreamAuthInterceptor(validToken string) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authorize(ss.Context(), validToken)
		if err != nil {
			return err
		}
		return handler(srv, &authorizedStream{ServerStream: ss, ctx: ctx})
	}
}

type authorizedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authorizedStream) Context() context.Context {
	return s.ctx
}

func authorize(ctx context.Context, validToken string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization header")
	}

	if strings.TrimPrefix(authHeaders[0], "Bearer ") != validToken {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	// Absence of a transfer credential is not an error here; the client falls back to its own
	if credentials := md.Get(CredentialHeader); len(credentials) > 0 {
		ctx = transferapi.WithBearerToken(ctx, credentials[0])
	}

	return ctx, nil
}
