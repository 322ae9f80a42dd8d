package event

import (
	"context"
	"log/slog"

	"github.com/congo-pay/feetoken/internal/logging"
)

// LoggerSink writes records to the structured logger.
type LoggerSink struct {
	logger *slog.Logger
}

// NewLoggerSink constructs a logging sink.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Publish writes each record to the structured logger.
func (s *LoggerSink) Publish(ctx context.Context, records ...Record) error {
	if s == nil || s.logger == nil {
		return nil
	}
	for _, r := range records {
		attrs := make([]any, 0, len(r.Args)+3)
		attrs = append(attrs, slog.String("kind", string(r.Kind)), slog.String("event_id", r.ID))
		if id := logging.RequestID(ctx); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		for k, v := range r.Args {
			attrs = append(attrs, slog.String(k, v))
		}
		s.logger.InfoContext(ctx, "token event", attrs...)
	}
	return nil
}
