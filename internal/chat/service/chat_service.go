package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"medious/internal/chat/repository"
	"medious/internal/common"
	"medious/internal/dbmongo"
)

const (
	maxContentLength = 5000
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// UserLookup is satisfied by user.UserRepository.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID string) (*dbmongo.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]*dbmongo.User, error)
}

type Notifier interface {
	NotifyNewMessage(senderID, receiverID, messageID string)
}

// ConversationSummary pairs a partner with the latest message exchanged.
type ConversationSummary struct {
	Partner     *dbmongo.User
	LastMessage dbmongo.Message
	UnreadCount int
}

type HistoryPage struct {
	Items      []dbmongo.Message
	NextCursor string
}

// ChatService defines the interface exposed to the handler layer
type ChatService interface {
	SendMessage(ctx context.Context, senderID, receiverID, content string) (*dbmongo.Message, error)
	Conversations(ctx context.Context, userID string) ([]ConversationSummary, error)
	GetMessageHistory(ctx context.Context, userID, partnerID, cursor string, limit int) (*HistoryPage, error)
	MarkRead(ctx context.Context, userID, messageID string) (*dbmongo.Message, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type chatService struct {
	repo     repository.ChatRepository
	users    UserLookup
	notifier Notifier
	logger   *zap.Logger
}

func NewChatService(r repository.ChatRepository, users UserLookup, notifier Notifier, logger *zap.Logger) ChatService {
	return &chatService{repo: r, users: users, notifier: notifier, logger: logger}
}

func (s *chatService) partner(ctx context.Context, id string) (*dbmongo.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// SendMessage handles message validation and saving
func (s *chatService) SendMessage(ctx context.Context, senderID, receiverID, content string) (*dbmongo.Message, error) {
	sender, err := dbmongo.ParseID(senderID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.Unprocessable("message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, common.Unprocessable("message content must be at most %d characters long", maxContentLength)
	}
	receiver, err := s.partner(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	// Hex ids are case-insensitive, so compare the parsed id.
	if receiver.ID == sender {
		return nil, common.BadRequest("You cannot message yourself")
	}

	msg := &dbmongo.Message{
		SenderID:   sender,
		ReceiverID: receiver.ID,
		Content:    content,
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	s.notifier.NotifyNewMessage(senderID, receiverID, msg.ID.Hex())
	return msg, nil
}

func (s *chatService) Conversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	me, err := dbmongo.ParseID(userID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	rows, err := s.repo.Conversations(ctx, me)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	if len(rows) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := funk.Map(rows, func(c repository.Conversation) string { return c.PartnerID.Hex() }).([]string)
	partners, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation partners: %w", err)
	}
	byID := make(map[primitive.ObjectID]*dbmongo.User, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}

	out := make([]ConversationSummary, 0, len(rows))
	for _, row := range rows {
		p, ok := byID[row.PartnerID]
		if !ok {
			// deleted account
			continue
		}
		out = append(out, ConversationSummary{Partner: p, LastMessage: row.LastMessage, UnreadCount: row.UnreadCount})
	}
	return out, nil
}

// GetMessageHistory pages the conversation newest first and marks the partner's messages as read.
func (s *chatService) GetMessageHistory(ctx context.Context, userID, partnerID, cursor string, limit int) (*HistoryPage, error) {
	me, err := dbmongo.ParseID(userID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	after, err := common.ParseCursorParam(cursor)
	if err != nil {
		return nil, err
	}
	other, err := s.partner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	limit = common.ClampLimit(limit, defaultPageLimit, maxPageLimit)

	if n, err := s.repo.MarkConversationRead(ctx, other.ID, me); err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	} else if n > 0 {
		s.logger.Debug("marked messages read", zap.String("user_id", userID), zap.Int64("count", n))
	}

	messages, err := s.repo.FetchHistory(ctx, me, other.ID, after, limit)
	if err != nil {
		var he *common.HTTPError
		if errors.As(err, &he) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	items, next := common.Paginate(messages, limit, func(m dbmongo.Message) (time.Time, string) {
		return m.CreatedAt, m.ID.Hex()
	})
	return &HistoryPage{Items: items, NextCursor: next}, nil
}

func (s *chatService) MarkRead(ctx context.Context, userID, messageID string) (*dbmongo.Message, error) {
	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return nil, common.NotFound("Message not found")
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if msg.ReceiverID.Hex() != userID {
		return nil, common.Forbidden("You can only mark messages sent to you as read")
	}
	if msg.Read {
		return msg, nil
	}
	if err := s.repo.MarkRead(ctx, msg.ID); err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return nil, common.NotFound("Message not found")
		}
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	msg.Read = true
	return msg, nil
}

func (s *chatService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	me, err := dbmongo.ParseID(userID)
	if err != nil {
		return 0, common.Unauthorized("Not authenticated")
	}
	n, err := s.repo.CountUnread(ctx, me)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}
