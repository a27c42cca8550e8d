package notif

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Service struct {
	manager *Manager
	mailer  Mailer
	logger  *zap.Logger
}

func NewService(manager *Manager, mailer Mailer, logger *zap.Logger) *Service {
	return &Service{manager: manager, mailer: mailer, logger: logger}
}

// SendPasswordReset mails the token synchronously so the caller sees delivery failures.
func (s *Service) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	// No real mail transport yet; the token is only recoverable from the log.
	s.logger.Info("password reset token",
		zap.String("email", email),
		zap.String("token", token),
		zap.Time("expires_at", expiresAt))

	body := fmt.Sprintf("Use this code to reset your password: %s\nIt expires at %s.",
		token, expiresAt.UTC().Format(time.RFC3339))
	if err := s.mailer.SendEmail(ctx, email, "Reset your Medious password", body); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.manager.NotifyAsync(Event{Type: EventPasswordReset, Header: "Password reset requested"})
	return nil
}

// NotifyNewFollower also mails followingEmail when it is set.
func (s *Service) NotifyNewFollower(followerID, followingID, followingEmail string) {
	s.manager.NotifyAsync(Event{
		Type:          EventNewFollower,
		UserID:        followingID,
		TriggerUserID: followerID,
		Email:         followingEmail,
		Header:        "You have a new follower",
		Content:       "Someone started following you on Medious.",
	})
}

func (s *Service) NotifyNewMessage(senderID, receiverID, messageID string) {
	s.manager.NotifyAsync(Event{
		Type:          EventNewMessage,
		UserID:        receiverID,
		TriggerUserID: senderID,
		Header:        "You have a new message",
		Metadata:      map[string]string{"message_id": messageID},
	})
}

func (s *Service) NotifyRSVP(attendeeID, ownerID, eventID string) {
	if attendeeID == ownerID {
		return
	}
	s.manager.NotifyAsync(Event{
		Type:          EventRSVP,
		UserID:        ownerID,
		TriggerUserID: attendeeID,
		Header:        "Someone is attending your event",
		Metadata:      map[string]string{"event_id": eventID},
	})
}

func (s *Service) Shutdown() {
	s.manager.Shutdown()
}
