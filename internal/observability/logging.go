package observability

import (
	"context"
	"log/slog"
	"os"
)

// GlobalLogger is the default logger for service-level events.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// StructuredLogger logs service calls with a fixed service name.
type StructuredLogger struct {
	service string
	logger  *slog.Logger
}

// NewStructuredLogger creates a StructuredLogger for service. A nil logger falls back to GlobalLogger.
func NewStructuredLogger(service string, logger *slog.Logger) *StructuredLogger {
	if logger == nil {
		logger = GlobalLogger
	}
	return &StructuredLogger{service: service, logger: logger}
}

// LogServiceCall logs a completed service method call.
func (l *StructuredLogger) LogServiceCall(ctx context.Context, method string, err error, fields ...any) {
	attrs := append([]any{
		slog.String("service", l.service),
		slog.String("method", method),
	}, fields...)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.logger.WarnContext(ctx, "service call failed", attrs...)
		return
	}
	l.logger.InfoContext(ctx, "service call", attrs...)
}

// LogAsyncOperationError logs an error in a background operation.
func (l *StructuredLogger) LogAsyncOperationError(ctx context.Context, operation string, err error, fields ...any) {
	attrs := append([]any{
		slog.String("service", l.service),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	}, fields...)
	l.logger.ErrorContext(ctx, "async operation failed", attrs...)
}
