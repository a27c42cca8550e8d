package notif

import (
	"context"

	"go.uber.org/zap"
)

type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// LogMailer writes outgoing mail to the log instead of delivering it.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}
