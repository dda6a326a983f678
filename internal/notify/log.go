package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender records notifications instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	l.logger.Info("email notification", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (l *LogSender) Push(_ context.Context, userID, title, _ string, data map[string]string) error {
	l.logger.Info("push notification", zap.String("user_id", userID), zap.String("title", title), zap.Any("data", data))
	return nil
}
