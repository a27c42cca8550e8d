// Package handler exposes direct messaging over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"medious/internal/chat/service"
	"medious/internal/common"
	"medious/internal/dbmongo"
	"medious/internal/user"
)

type MessageResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

type ConversationResponse struct {
	Partner     user.UserSummary `json:"partner"`
	LastMessage MessageResponse  `json:"last_message"`
	UnreadCount int              `json:"unread_count"`
}

type HistoryResponse struct {
	Items      []MessageResponse `json:"items"`
	NextCursor string            `json:"next_cursor"`
}

type unreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

func NewMessageResponse(m *dbmongo.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID.Hex(),
		SenderID:   m.SenderID.Hex(),
		ReceiverID: m.ReceiverID.Hex(),
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}

type ChatHandler struct {
	chatService service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/messages", h.SendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/conversations", h.Conversations).Methods(http.MethodGet)
	r.HandleFunc("/messages/unread-count", h.UnreadCount).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}/read", h.MarkRead).Methods(http.MethodPut)
	r.HandleFunc("/messages/{userId}", h.GetChatHistory).Methods(http.MethodGet)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	var req sendMessageRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	msg, err := h.chatService.SendMessage(r.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, NewMessageResponse(msg))
}

func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	convs, err := h.chatService.Conversations(r.Context(), userID)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	out := make([]ConversationResponse, 0, len(convs))
	for i := range convs {
		out = append(out, ConversationResponse{
			Partner:     user.NewUserSummary(convs[i].Partner),
			LastMessage: NewMessageResponse(&convs[i].LastMessage),
			UnreadCount: convs[i].UnreadCount,
		})
	}
	common.WriteJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	page, err := h.chatService.GetMessageHistory(r.Context(), userID, mux.Vars(r)["userId"],
		r.URL.Query().Get("cursor"), common.QueryInt(r, "limit", 0))
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	items := make([]MessageResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, NewMessageResponse(&page.Items[i]))
	}
	common.WriteJSON(w, http.StatusOK, HistoryResponse{Items: items, NextCursor: page.NextCursor})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	msg, err := h.chatService.MarkRead(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewMessageResponse(msg))
}

func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	n, err := h.chatService.UnreadCount(r.Context(), userID)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, unreadCountResponse{UnreadCount: n})
}
