package otp

import (
	"context"
	"log/slog"
)

// Dispatcher hands a freshly generated code to the external delivery channel.
// The gateway only observes success or failure of the dispatch call, never
// actual delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, phone, code string) error
}

// LoggerDispatcher is a stub delivery channel that records the dispatch in the
// structured log. The code itself is never written out.
type LoggerDispatcher struct {
	logger *slog.Logger
}

// NewLoggerDispatcher constructs a logging dispatcher stub.
func NewLoggerDispatcher(logger *slog.Logger) *LoggerDispatcher {
	return &LoggerDispatcher{logger: logger}
}

// Dispatch logs the delivery intent.
func (d *LoggerDispatcher) Dispatch(_ context.Context, phone, code string) error {
	if d == nil || d.logger == nil {
		return nil
	}
	d.logger.Info("otp dispatched", "phone", phone, "code_length", len(code))
	return nil
}
