package goserdes

import (
	"context"

	"github.com/reoring/goserdes/i18n"
)

type serviceKey[T any] struct{}

// WithService attaches svc to ctx so Refine rules and prepare hooks can reach
// it through Service or RequireService. One value is kept per type.
func WithService[T any](ctx context.Context, svc T) context.Context {
	return context.WithValue(ctx, serviceKey[T]{}, svc)
}

// Service returns the value of type T attached with WithService.
func Service[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(serviceKey[T]{}).(T)
	return v, ok
}

// RequireService is like Service but reports a missing value as a
// dependency_unavailable issue at the document root.
func RequireService[T any](ctx context.Context) (T, error) {
	if v, ok := Service[T](ctx); ok {
		return v, nil
	}
	var zero T
	return zero, Issues{{Path: "/", Code: CodeDependencyUnavailable, Message: i18n.T(CodeDependencyUnavailable, nil)}}
}
