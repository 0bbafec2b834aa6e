package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTrack is the standardized structured logging key for track sequence numbers.
	FieldTrack = "track"
	// FieldStage is the standardized structured logging key for per-track stage names.
	FieldStage = "stage"
	// FieldJobID is the standardized structured logging key for track job identifiers.
	FieldJobID = "job_id"
	// FieldCorrelationID is the standardized structured logging key for session correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey string

const (
	trackKey         contextKey = "track"
	stageKey         contextKey = "stage"
	jobIDKey         contextKey = "job_id"
	correlationIDKey contextKey = "correlation_id"
)

// WithTrack annotates context with the 1-based track sequence number.
func WithTrack(ctx context.Context, seq int) context.Context {
	return context.WithValue(ctx, trackKey, seq)
}

// WithStage annotates context with the per-track stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// WithJobID annotates context with the track job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// WithCorrelationID annotates context with a session correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if seq, ok := ctx.Value(trackKey).(int); ok {
		fields = append(fields, slog.Int(FieldTrack, seq))
	}
	if stage, ok := ctx.Value(stageKey).(string); ok && stage != "" {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if id, ok := ctx.Value(jobIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
