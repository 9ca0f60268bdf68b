package audit

import (
	"context"
	"log/slog"
	"time"
)

// RequestIDKey is the context key the HTTP layer stores the request ID
// under. Audit records read it back so they correlate with request logs.
type RequestIDKey struct{}

// WithRequestID returns a context carrying the request ID for audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, id)
}

// Logger emits audit records for actions that change inspection state.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, orgID, userID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID, ok := ctx.Value(RequestIDKey{}).(string); ok {
		requestID = reqID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("org_id", orgID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogInspectionCreated(ctx context.Context, orgID, userID, inspectionID, details string) {
	al.LogAction(ctx, orgID, userID, "create", "inspection", inspectionID, "created", details)
}

func (al *Logger) LogSchedulerRun(ctx context.Context, orgID, userID string) {
	al.LogAction(ctx, orgID, userID, "run", "scheduler", "", "triggered", "")
}

func (al *Logger) LogDenied(ctx context.Context, orgID, userID, reason string) {
	al.LogAction(ctx, orgID, userID, "access_denied", "api", "", "denied", reason)
}
