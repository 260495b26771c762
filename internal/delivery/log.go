package delivery

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher writes briefs to the application log. It is the development
// fallback when no delivery channel is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Name identifies the channel for logging
func (d *LogDispatcher) Name() string {
	return "log"
}

// Send logs the brief instead of delivering it.
func (d *LogDispatcher) Send(ctx context.Context, destination, body string) error {
	d.logger.Info("lead brief (log delivery)",
		zap.String("destination", destination),
		zap.String("body", body),
	)
	return nil
}
