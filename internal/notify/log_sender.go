package notify

import (
	"context"

	"breakout_bot/pkg/logger"
)

// LogSender writes notifications to the application log.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(_ context.Context, text string) error {
	logger.Info("notify: %s", text)
	return nil
}
