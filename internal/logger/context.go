package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const TraceIDKey contextKey = "trace_id"
const RitualIDKey contextKey = "ritual_id"

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}

func WithRitualID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RitualIDKey, id)
}

func GetRitualID(ctx context.Context) string {
	if id, ok := ctx.Value(RitualIDKey).(string); ok {
		return id
	}
	return ""
}

// From returns the default logger annotated with whatever ids ctx carries.
func From(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := GetTraceID(ctx); id != "" {
		l = l.With(string(TraceIDKey), id)
	}
	if id := GetRitualID(ctx); id != "" {
		l = l.With(string(RitualIDKey), id)
	}
	return l
}
