package event

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
	"medious/internal/user"
)

type EventResponse struct {
	ID            string                 `json:"id"`
	OwnerID       string                 `json:"owner_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	StartTime     time.Time              `json:"start_time"`
	EndTime       *time.Time             `json:"end_time,omitempty"`
	LocationName  string                 `json:"location_name,omitempty"`
	Location      *user.LocationResponse `json:"location,omitempty"`
	AttendeeCount int                    `json:"attendee_count"`
	CreatedAt     time.Time              `json:"created_at"`
}

type NearbyEventResponse struct {
	EventResponse
	DistanceKm float64 `json:"distance_km"`
}

type EventListResponse struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor"`
}

type rsvpResponse struct {
	Attending     bool `json:"attending"`
	AttendeeCount int  `json:"attendee_count"`
}

func NewEventResponse(e *dbmongo.Event) EventResponse {
	resp := EventResponse{
		ID:            e.ID.Hex(),
		OwnerID:       e.OwnerID.Hex(),
		Title:         e.Title,
		Description:   e.Description,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		LocationName:  e.LocationName,
		AttendeeCount: len(e.Attendees),
		CreatedAt:     e.CreatedAt,
	}
	if e.Location != nil {
		resp.Location = &user.LocationResponse{Latitude: e.Location.Lat(), Longitude: e.Location.Lng()}
	}
	return resp
}

func newEventResponses(events []dbmongo.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, NewEventResponse(&events[i]))
	}
	return out
}

type Handler struct {
	eventService EventService
	logger       *zap.Logger
}

func NewHandler(svc EventService, logger *zap.Logger) *Handler {
	return &Handler{eventService: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/events", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/events", h.ListUpcoming).Methods(http.MethodGet)
	r.HandleFunc("/events/nearby", h.Nearby).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/events/{id}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/events/{id}/rsvp", h.RSVP).Methods(http.MethodPost)
	r.HandleFunc("/events/{id}/attendees", h.Attendees).Methods(http.MethodGet)
	r.HandleFunc("/search/events", h.Search).Methods(http.MethodGet)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	common.WriteError(w, h.logger, err)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var in EventInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.fail(w, err)
		return
	}
	event, err := h.eventService.CreateEvent(r.Context(), userID, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, NewEventResponse(event))
}

func (h *Handler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	page, err := h.eventService.ListUpcoming(r.Context(), r.URL.Query().Get("cursor"), common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, EventListResponse{Items: newEventResponses(page.Items), NextCursor: page.NextCursor})
}

func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	nearby, err := h.eventService.Nearby(r.Context(), userID,
		common.QueryFloat(r, "radius_km", 0), common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]NearbyEventResponse, 0, len(nearby))
	for i := range nearby {
		out = append(out, NearbyEventResponse{EventResponse: NewEventResponse(&nearby[i].Event), DistanceKm: nearby[i].DistanceKm})
	}
	common.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewEventResponse(event))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var in EventInput
	if err := common.DecodeJSON(r, &in); err != nil {
		h.fail(w, err)
		return
	}
	event, err := h.eventService.UpdateEvent(r.Context(), userID, mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, NewEventResponse(event))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.eventService.DeleteEvent(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, common.MessageResponse{Message: "Event deleted"})
}

func (h *Handler) RSVP(w http.ResponseWriter, r *http.Request) {
	userID, err := common.CurrentUserID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	attending, count, err := h.eventService.ToggleRSVP(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, rsvpResponse{Attending: attending, AttendeeCount: count})
}

func (h *Handler) Attendees(w http.ResponseWriter, r *http.Request) {
	users, err := h.eventService.Attendees(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user.NewUserSummaries(users))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.SearchEvents(r.Context(), r.URL.Query().Get("q"), common.QueryInt(r, "limit", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, newEventResponses(events))
}
