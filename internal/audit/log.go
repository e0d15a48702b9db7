package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"guardianchain.app/internal/auth"
	"guardianchain.app/internal/ids"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder writes audit entries through a structured logger.
type Recorder struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a Recorder writing to logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger, now: time.Now}
}

// Record writes an audit entry enriched with request and principal context.
// A nil Recorder drops the event.
func (r *Recorder) Record(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	if r == nil || r.logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("type", "audit"),
		slog.String("event_id", ids.New()),
		slog.String("event", event),
		slog.String("ts", r.now().UTC().Format(time.RFC3339Nano)),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		attrs = append(attrs, slog.String("principal_id", p.ID), slog.String("principal_role", p.Role.String()))
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	attrs = append(attrs, slog.Any("fields", copyFields))
	r.logger.InfoContext(ctx, "audit", attrs...)
	return nil
}
