package user

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"medious/internal/common"
)

// Handler exposes auth, profile, follow, location and user search over HTTP.
type Handler struct {
	userService UserService
	logger      *zap.Logger
}

func NewHandler(userService UserService, logger *zap.Logger) *Handler {
	return &Handler{userService: userService, logger: logger}
}

// RegisterRoutes mounts the unauthenticated auth routes on public and everything else on protected.
func (h *Handler) RegisterRoutes(public, protected *mux.Router) {
	public.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	public.HandleFunc("/auth/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	public.HandleFunc("/auth/reset-password", h.ResetPassword).Methods(http.MethodPost)
	public.HandleFunc("/auth/supabase-sync", h.SupabaseSync).Methods(http.MethodPost)

	protected.HandleFunc("/auth/verify", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/users/profile", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/users/profile", h.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}/follow", h.ToggleFollow).Methods(http.MethodPost)
	protected.HandleFunc("/users/{id}/followers", h.Followers).Methods(http.MethodGet)
	protected.HandleFunc("/users/{id}/following", h.Following).Methods(http.MethodGet)
	protected.HandleFunc("/location", h.UpdateLocation).Methods(http.MethodPut)
	protected.HandleFunc("/location/nearby", h.Nearby).Methods(http.MethodGet)
	protected.HandleFunc("/search/users", h.Search).Methods(http.MethodGet)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	common.WriteError(w, h.logger, err)
}

func (h *Handler) writeAuth(w http.ResponseWriter, res *AuthResult) {
	common.WriteJSON(w, http.StatusOK, AuthResponse{Token: res.Token, User: NewUserResponse(res.User)})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeAuth(w, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeAuth(w, res)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.userService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: forgotPasswordReply})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.userService.ResetPassword(r.Context(), req.Email, req.ResetToken, req.NewPassword); err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: "Password has been reset successfully"})
}

func (h *Handler) SupabaseSync(w http.ResponseWriter, r *http.Request) {
	var req SupabaseSyncRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.userService.SupabaseSync(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeAuth(w, res)
}

// Me serves both /auth/verify and GET /users/profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewUserResponse(user))
}

// UpdateProfile takes a JSON body; older clients send name and avatar as query parameters.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	var update ProfileUpdate
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &update); err != nil {
			h.fail(w, err)
			return
		}
	}
	q := r.URL.Query()
	if update.Name == nil && q.Has("name") {
		name := q.Get("name")
		update.Name = &name
	}
	if update.Avatar == nil && q.Has("avatar") {
		avatar := q.Get("avatar")
		update.Avatar = &avatar
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewUserResponse(user))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	viewerID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	profile, err := h.userService.GetPublicProfile(r.Context(), viewerID, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, PublicProfileResponse{
		UserSummary:    NewUserSummary(profile.User),
		CreatedAt:      profile.User.CreatedAt,
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowingCount,
		IsFollowing:    profile.IsFollowing,
	})
}

func (h *Handler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	following, err := h.userService.ToggleFollow(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]bool{"following": following})
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListFollowers(r.Context(), mux.Vars(r)["id"], common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewUserSummaries(users))
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListFollowing(r.Context(), mux.Vars(r)["id"], common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewUserSummaries(users))
}

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req locationRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		h.fail(w, common.Unprocessable("latitude and longitude are required"))
		return
	}
	if err := h.userService.UpdateLocation(r.Context(), userID, *req.Latitude, *req.Longitude); err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, LocationResponse{Latitude: *req.Latitude, Longitude: *req.Longitude})
}

func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	nearby, err := h.userService.Nearby(r.Context(), userID,
		common.QueryFloat(r, "radius_km", defaultRadiusKm), common.QueryInt(r, "limit", defaultNearbyLimit))
	if err != nil {
		h.fail(w, err)
		return
	}

	out := make([]NearbyUserResponse, 0, len(nearby))
	for _, n := range nearby {
		out = append(out, NearbyUserResponse{UserSummary: NewUserSummary(n.User), DistanceKm: n.DistanceKm})
	}
	common.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.SearchUsers(r.Context(), r.URL.Query().Get("q"), common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewUserSummaries(users))
}
