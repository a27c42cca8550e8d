package notif

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) Name() string {
	return "log_observer"
}

func (l *LogObserver) Update(_ context.Context, event Event) error {
	l.logger.Info("notification",
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("trigger_user_id", event.TriggerUserID),
		zap.String("header", event.Header))
	return nil
}

// Counter is satisfied by *metrics.Metrics.
type Counter interface {
	Notification(kind string)
}

type MetricsObserver struct {
	counter Counter
}

func NewMetricsObserver(counter Counter) *MetricsObserver {
	return &MetricsObserver{counter: counter}
}

func (m *MetricsObserver) Name() string {
	return "metrics_observer"
}

func (m *MetricsObserver) Update(_ context.Context, event Event) error {
	m.counter.Notification(string(event.Type))
	return nil
}

// EmailObserver mails events that carry a recipient address.
type EmailObserver struct {
	mailer Mailer
}

func NewEmailObserver(mailer Mailer) *EmailObserver {
	return &EmailObserver{mailer: mailer}
}

func (e *EmailObserver) Name() string {
	return "email_observer"
}

func (e *EmailObserver) Update(ctx context.Context, event Event) error {
	if event.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Medious: %s", event.Header)
	if err := e.mailer.SendEmail(ctx, event.Email, subject, event.Content); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
