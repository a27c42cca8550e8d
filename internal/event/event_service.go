package event

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/copier"
	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
	"medious/internal/user"
)

const (
	defaultPageLimit   = 20
	maxPageLimit       = 100
	defaultNearbyLimit = 20
	maxNearbyLimit     = 100
	defaultSearchLimit = 20
	maxSearchLimit     = 50
	maxTitleLength     = 200
)

// UserDirectory is satisfied by user.UserRepository.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (*dbmongo.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]*dbmongo.User, error)
}

// Notifier is implemented by *notif.Service.
type Notifier interface {
	NotifyRSVP(attendeeID, ownerID, eventID string)
}

// EventInput is both the create and the partial update payload; nil fields are absent.
type EventInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	LocationName *string    `json:"location_name"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
}

// eventPatch mirrors the editable dbmongo.Event fields for copier.
type eventPatch struct {
	Title        string
	Description  string
	StartTime    time.Time
	EndTime      *time.Time
	LocationName string
	Location     *dbmongo.GeoPoint
}

type Page struct {
	Items      []dbmongo.Event
	NextCursor string
}

type NearbyEvent struct {
	Event      dbmongo.Event
	DistanceKm float64
}

type EventService interface {
	CreateEvent(ctx context.Context, ownerID string, in EventInput) (*dbmongo.Event, error)
	GetEvent(ctx context.Context, eventID string) (*dbmongo.Event, error)
	UpdateEvent(ctx context.Context, userID, eventID string, in EventInput) (*dbmongo.Event, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error

	ListUpcoming(ctx context.Context, cursor string, limit int) (*Page, error)
	Nearby(ctx context.Context, userID string, radiusKm float64, limit int) ([]NearbyEvent, error)
	SearchEvents(ctx context.Context, query string, limit int) ([]dbmongo.Event, error)

	ToggleRSVP(ctx context.Context, userID, eventID string) (bool, int, error)
	Attendees(ctx context.Context, eventID string) ([]*dbmongo.User, error)
}

type eventService struct {
	events   EventRepository
	users    UserDirectory
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewEventService(events EventRepository, users UserDirectory, notifier Notifier, logger *zap.Logger) EventService {
	return &eventService{events: events, users: users, notifier: notifier, logger: logger, now: time.Now}
}

func eventNotFound(err error) error {
	if errors.Is(err, dbmongo.ErrNotFound) {
		return common.NotFound("Event not found")
	}
	return fmt.Errorf("failed to load event: %w", err)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// location reports (nil, nil) when neither coordinate was sent.
func (in EventInput) location() (*dbmongo.GeoPoint, error) {
	if in.Latitude == nil && in.Longitude == nil {
		return nil, nil
	}
	if in.Latitude == nil || in.Longitude == nil {
		return nil, common.Unprocessable("latitude and longitude must be given together")
	}
	if err := common.ValidateCoordinates(*in.Latitude, *in.Longitude); err != nil {
		return nil, common.Unprocessable("%v", err)
	}
	return dbmongo.NewGeoPoint(*in.Latitude, *in.Longitude), nil
}

func validateEvent(e *dbmongo.Event) error {
	if e.Title == "" {
		return common.Unprocessable("title is required")
	}
	if utf8.RuneCountInString(e.Title) > maxTitleLength {
		return common.Unprocessable("title must be at most %d characters long", maxTitleLength)
	}
	if e.StartTime.IsZero() {
		return common.Unprocessable("start_time is required")
	}
	if e.EndTime != nil && e.EndTime.Before(e.StartTime) {
		return common.Unprocessable("end_time must not be before start_time")
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, ownerID string, in EventInput) (*dbmongo.Event, error) {
	owner, err := dbmongo.ParseID(ownerID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	loc, err := in.location()
	if err != nil {
		return nil, err
	}

	event := &dbmongo.Event{
		OwnerID:      owner,
		Title:        trimmed(in.Title),
		Description:  trimmed(in.Description),
		LocationName: trimmed(in.LocationName),
		Location:     loc,
		Attendees:    []primitive.ObjectID{},
	}
	if in.StartTime != nil {
		event.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		end := in.EndTime.UTC()
		event.EndTime = &end
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*dbmongo.Event, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, eventNotFound(err)
	}
	return event, nil
}

func (s *eventService) ownedEvent(ctx context.Context, userID, eventID string) (*dbmongo.Event, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, eventNotFound(err)
	}
	if event.OwnerID.Hex() != userID {
		return nil, common.Forbidden("Only the event owner can modify this event")
	}
	return event, nil
}

// UpdateEvent applies the non-empty fields of in on top of the stored event.
func (s *eventService) UpdateEvent(ctx context.Context, userID, eventID string, in EventInput) (*dbmongo.Event, error) {
	event, err := s.ownedEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	loc, err := in.location()
	if err != nil {
		return nil, err
	}

	patch := eventPatch{
		Title:        trimmed(in.Title),
		Description:  trimmed(in.Description),
		LocationName: trimmed(in.LocationName),
		Location:     loc,
	}
	if in.StartTime != nil {
		patch.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		end := in.EndTime.UTC()
		patch.EndTime = &end
	}
	if err := copier.CopyWithOption(event, &patch, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, fmt.Errorf("failed to apply event update: %w", err)
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return nil, eventNotFound(err)
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, userID, eventID string) error {
	event, err := s.ownedEvent(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if err := s.events.DeleteEvent(ctx, event.ID); err != nil {
		return eventNotFound(err)
	}
	return nil
}

func (s *eventService) ListUpcoming(ctx context.Context, cursor string, limit int) (*Page, error) {
	after, err := common.ParseCursorParam(cursor)
	if err != nil {
		return nil, err
	}
	limit = common.ClampLimit(limit, defaultPageLimit, maxPageLimit)

	events, err := s.events.ListUpcoming(ctx, s.now(), after, limit)
	if err != nil {
		var he *common.HTTPError
		if errors.As(err, &he) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	items, next := common.Paginate(events, limit, func(e dbmongo.Event) (time.Time, string) {
		return e.StartTime, e.ID.Hex()
	})
	return &Page{Items: items, NextCursor: next}, nil
}

// Nearby uses the caller's stored location as the centre.
func (s *eventService) Nearby(ctx context.Context, userID string, radiusKm float64, limit int) ([]NearbyEvent, error) {
	radiusKm = user.ClampRadius(radiusKm)
	limit = common.ClampLimit(limit, defaultNearbyLimit, maxNearbyLimit)

	me, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if me.Location == nil {
		return nil, common.BadRequest("Please set your location first")
	}

	events, err := s.events.FindNearby(ctx, me.Location, radiusKm, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby events: %w", err)
	}
	out := make([]NearbyEvent, 0, len(events))
	for _, e := range events {
		if e.Location == nil {
			continue
		}
		d, ok := common.WithinRadius(me.Location.Lat(), me.Location.Lng(), e.Location.Lat(), e.Location.Lng(), radiusKm)
		if !ok {
			continue
		}
		out = append(out, NearbyEvent{Event: e, DistanceKm: math.Round(d*100) / 100})
	}
	return out, nil
}

func (s *eventService) SearchEvents(ctx context.Context, query string, limit int) ([]dbmongo.Event, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.Unprocessable("Search query is required")
	}
	events, err := s.events.SearchByTitle(ctx, query, common.ClampLimit(limit, defaultSearchLimit, maxSearchLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	return events, nil
}

// ToggleRSVP reports whether the user attends afterwards and the new attendee count.
func (s *eventService) ToggleRSVP(ctx context.Context, userID, eventID string) (bool, int, error) {
	uid, err := dbmongo.ParseID(userID)
	if err != nil {
		return false, 0, common.Unauthorized("Not authenticated")
	}
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return false, 0, eventNotFound(err)
	}

	attending := funk.Contains(event.Attendees, uid)
	if attending {
		event, err = s.events.RemoveAttendee(ctx, event.ID, uid)
	} else {
		event, err = s.events.AddAttendee(ctx, event.ID, uid)
	}
	if err != nil {
		return false, 0, eventNotFound(err)
	}
	if !attending {
		s.notifier.NotifyRSVP(userID, event.OwnerID.Hex(), event.ID.Hex())
	}
	return !attending, len(event.Attendees), nil
}

func (s *eventService) Attendees(ctx context.Context, eventID string) ([]*dbmongo.User, error) {
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, eventNotFound(err)
	}
	ids := funk.Map(event.Attendees, func(id primitive.ObjectID) string { return id.Hex() }).([]string)
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendees: %w", err)
	}
	return users, nil
}
