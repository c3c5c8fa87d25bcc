package logger

import (
	"context"

	"go.uber.org/zap"
)

// Field names shared across packages so log queries can rely on them.
const (
	FieldJobID      = "job_id"
	FieldHandler    = "handler"
	FieldComponent  = "component"
	FieldError      = "error"
	FieldDurationMS = "duration_ms"

	FieldCount      = "count"
	FieldTotalCount = "total_count"

	FieldRow      = "row"
	FieldRecordID = "record_id"
	FieldEntry    = "entry"
)

type ctxKey struct{}

// With returns ctx carrying keysAndValues in addition to any fields already
// attached. FromContext adds them to every entry.
func With(ctx context.Context, keysAndValues ...interface{}) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]interface{})
	fields := make([]interface{}, 0, len(prev)+len(keysAndValues))
	fields = append(fields, prev...)
	fields = append(fields, keysAndValues...)
	return context.WithValue(ctx, ctxKey{}, fields)
}

// WithJobID attaches a job id.
func WithJobID(ctx context.Context, jobID int64) context.Context {
	return With(ctx, FieldJobID, jobID)
}

// FromContext returns base extended with the fields carried by ctx. A nil
// base falls back to the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields, _ := ctx.Value(ctxKey{}).([]interface{})
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
