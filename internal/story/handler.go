package story

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
	"medious/internal/user"
)

type StoryResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	MediaURL   string    `json:"media_url"`
	Caption    string    `json:"caption,omitempty"`
	ViewCount  int       `json:"view_count"`
	ViewedByMe bool      `json:"viewed_by_me"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type AuthorStoriesResponse struct {
	Author  user.UserSummary `json:"author"`
	Stories []StoryResponse  `json:"stories"`
}

type createStoryRequest struct {
	MediaURL string `json:"media_url"`
	Caption  string `json:"caption"`
}

type viewResponse struct {
	ViewCount int `json:"view_count"`
}

func NewStoryResponse(st *dbmongo.Story, viewerID string) StoryResponse {
	resp := StoryResponse{
		ID:        st.ID.Hex(),
		AuthorID:  st.AuthorID.Hex(),
		MediaURL:  st.MediaURL,
		Caption:   st.Caption,
		ViewCount: len(st.Views),
		CreatedAt: st.CreatedAt,
		ExpiresAt: st.ExpiresAt,
	}
	if viewer, err := primitive.ObjectIDFromHex(viewerID); err == nil {
		resp.ViewedByMe = funk.Contains(st.Views, viewer)
	}
	return resp
}

type Handler struct {
	storyService   StoryService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(svc StoryService, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{storyService: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/stories", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/stories", h.List).Methods(http.MethodGet)
	r.HandleFunc("/stories/upload", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/stories/{id}/view", h.View).Methods(http.MethodPost)
	r.HandleFunc("/stories/{id}/viewers", h.Viewers).Methods(http.MethodGet)
	r.HandleFunc("/stories/{id}", h.Delete).Methods(http.MethodDelete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	var req createStoryRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	st, err := h.storyService.CreateStory(r.Context(), userID, req.MediaURL, req.Caption)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, NewStoryResponse(st, userID))
}

const multipartOverhead = 1 << 20

func (h *Handler) tooLarge() error {
	return common.NewHTTPError(http.StatusRequestEntityTooLarge, "File exceeds the %d byte limit", h.maxUploadBytes)
}

// Upload accepts multipart form data with a "file" part and an optional "caption" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	// The limit applies to the file part; the body may also carry boundaries and the caption.
	bodyLimit := h.maxUploadBytes + multipartOverhead
	if r.ContentLength > bodyLimit {
		common.WriteError(w, h.logger, h.tooLarge())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			common.WriteError(w, h.logger, h.tooLarge())
			return
		}
		common.WriteError(w, h.logger, common.Unprocessable("multipart form data is required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		common.WriteError(w, h.logger, common.Unprocessable("file is required"))
		return
	}
	defer file.Close()
	if header.Size > h.maxUploadBytes {
		common.WriteError(w, h.logger, h.tooLarge())
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == common.DefaultMimeType {
		mimeType = common.MimeTypeFromFilename(header.Filename)
	}

	st, err := h.storyService.UploadStory(r.Context(), userID, UploadInput{
		Filename: header.Filename,
		MimeType: mimeType,
		Caption:  r.FormValue("caption"),
		Content:  file,
	})
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, NewStoryResponse(st, userID))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	groups, err := h.storyService.ListStories(r.Context(), userID)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	out := make([]AuthorStoriesResponse, 0, len(groups))
	for _, g := range groups {
		stories := make([]StoryResponse, 0, len(g.Stories))
		for i := range g.Stories {
			stories = append(stories, NewStoryResponse(&g.Stories[i], userID))
		}
		out = append(out, AuthorStoriesResponse{Author: user.NewUserSummary(g.Author), Stories: stories})
	}
	common.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	n, err := h.storyService.ViewStory(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, viewResponse{ViewCount: n})
}

func (h *Handler) Viewers(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	users, err := h.storyService.Viewers(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user.NewUserSummaries(users))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	if err := h.storyService.DeleteStory(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		common.WriteError(w, h.logger, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: "Story deleted"})
}
