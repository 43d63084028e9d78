package transferapi

import (
	"context"
	"strings"
)

type bearerKey struct{}

// WithBearerToken returns a context carrying the credential to attach to outbound requests
func WithBearerToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerTokenFromContext returns the credential stored by WithBearerToken
func BearerTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerKey{}).(string)
	return token, ok && token != ""
}
