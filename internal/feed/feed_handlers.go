package feed

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
)

type FeedHandlers struct {
	FeedSvc FeedUsecase
	logger  *zap.Logger
}

func NewFeedHandlers(svc FeedUsecase, logger *zap.Logger) *FeedHandlers {
	return &FeedHandlers{FeedSvc: svc, logger: logger}
}

func (h *FeedHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/posts", h.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}", h.GetPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", h.DeletePost).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{id}/like", h.ToggleLike).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}/comments", h.AddComment).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}/comments", h.ListComments).Methods(http.MethodGet)
	r.HandleFunc("/comments/{id}", h.DeleteComment).Methods(http.MethodDelete)
	r.HandleFunc("/feed", h.GetTimeline).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/posts", h.GetUserPosts).Methods(http.MethodGet)
}

type createPostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type PostResponse struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"image_url,omitempty"`
	LikeCount    int       `json:"like_count"`
	LikedByMe    bool      `json:"liked_by_me"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedResponse struct {
	Items      []PostResponse `json:"items"`
	NextCursor string         `json:"next_cursor"`
}

type likeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

func newPostResponse(p *dbmongo.Post, viewerID string) PostResponse {
	resp := PostResponse{
		ID:           p.ID.Hex(),
		AuthorID:     p.AuthorID.Hex(),
		Content:      p.Content,
		ImageURL:     p.ImageURL,
		LikeCount:    len(p.Likes),
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
	}
	if viewer, err := primitive.ObjectIDFromHex(viewerID); err == nil {
		resp.LikedByMe = funk.Contains(p.Likes, viewer)
	}
	return resp
}

func newCommentResponse(c *dbmongo.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID.Hex(),
		PostID:    c.PostID.Hex(),
		AuthorID:  c.AuthorID.Hex(),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func newFeedResponse(page *Page, viewerID string) FeedResponse {
	items := make([]PostResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, newPostResponse(&page.Items[i], viewerID))
	}
	return FeedResponse{Items: items, NextCursor: page.NextCursor}
}

func (h *FeedHandlers) fail(w http.ResponseWriter, err error) {
	common.WriteError(w, h.logger, err)
}

func (h *FeedHandlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req createPostRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	post, err := h.FeedSvc.CreatePost(r.Context(), userID, req.Content, req.ImageURL)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, newPostResponse(post, userID))
}

func (h *FeedHandlers) GetPost(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	post, err := h.FeedSvc.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, newPostResponse(post, userID))
}

func (h *FeedHandlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.FeedSvc.DeletePost(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: "Post deleted"})
}

func (h *FeedHandlers) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	liked, count, err := h.FeedSvc.ToggleLike(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, likeResponse{Liked: liked, LikeCount: count})
}

func (h *FeedHandlers) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req commentRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	comment, err := h.FeedSvc.AddComment(r.Context(), userID, mux.Vars(r)["id"], req.Content)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, newCommentResponse(comment))
}

func (h *FeedHandlers) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.FeedSvc.ListComments(r.Context(), mux.Vars(r)["id"], common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, newCommentResponse(&comments[i]))
	}
	common.WriteJSON(w, http.StatusOK, out)
}

func (h *FeedHandlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.FeedSvc.DeleteComment(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: "Comment deleted"})
}

func (h *FeedHandlers) GetTimeline(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	q := r.URL.Query()
	page, err := h.FeedSvc.GetTimeline(r.Context(), userID, q.Get("cursor"), common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, newFeedResponse(page, userID))
}

func (h *FeedHandlers) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	q := r.URL.Query()
	page, err := h.FeedSvc.GetUserPosts(r.Context(), mux.Vars(r)["id"], q.Get("cursor"), common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, newFeedResponse(page, userID))
}
