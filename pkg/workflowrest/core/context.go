package core

import "context"

type ctxKey string

const (
	CtxKeyUsername ctxKey = ctxKey("username")
)

// Username returns the authenticated user stored on the context, or "".
func Username(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUsername).(string); ok {
		return v
	}
	return ""
}

// WithUsername returns a copy of ctx carrying the authenticated user.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, CtxKeyUsername, username)
}
