package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}
type reqIDKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithRequestID attaches a request id to both the contextual logger and the
// context itself so response envelopes can echo it back.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	l := FromContext(ctx)
	ctx = WithContext(ctx, l.With("req_id", reqID))
	return context.WithValue(ctx, reqIDKey{}, reqID)
}

// RequestID returns the request id bound to the context, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey{}).(string)
	return id
}
