package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldOperation names the running command (split, combine, verify).
	FieldOperation = "operation"
	// FieldOperationID carries the split_id of the part set being worked on.
	FieldOperationID = "split_id"
	// FieldPartIndex is the zero-based ordinal of a part.
	FieldPartIndex = "part_index"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
)

type operationKey struct{}

type operationInfo struct {
	name string
	id   string
}

// WithOperation records the operation name and split ID on ctx so that
// loggers derived through WithContext tag every line with them.
func WithOperation(ctx context.Context, name, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, operationKey{}, operationInfo{name: name, id: id})
}

// OperationFromContext returns the values stored by WithOperation.
func OperationFromContext(ctx context.Context) (name, id string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	info, ok := ctx.Value(operationKey{}).(operationInfo)
	if !ok {
		return "", "", false
	}
	return info.name, info.id, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	name, id, ok := OperationFromContext(ctx)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if name != "" {
		fields = append(fields, slog.String(FieldOperation, name))
	}
	if id != "" {
		fields = append(fields, slog.String(FieldOperationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
