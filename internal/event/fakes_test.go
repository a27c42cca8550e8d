package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medious/internal/common"
	"medious/internal/dbmongo"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]dbmongo.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[primitive.ObjectID]dbmongo.Event{}}
}

var _ EventRepository = (*fakeEventRepo)(nil)

func (r *fakeEventRepo) CreateEvent(ctx context.Context, e *dbmongo.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = time.Now().UTC()
	r.events[e.ID] = *e
	return nil
}

func (r *fakeEventRepo) GetEventByID(ctx context.Context, id string) (*dbmongo.Event, error) {
	oid, err := dbmongo.ParseID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[oid]
	if !ok {
		return nil, dbmongo.ErrNotFound
	}
	e.Attendees = append([]primitive.ObjectID{}, e.Attendees...)
	return &e, nil
}

func (r *fakeEventRepo) UpdateEvent(ctx context.Context, e *dbmongo.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[e.ID]; !ok {
		return dbmongo.ErrNotFound
	}
	r.events[e.ID] = *e
	return nil
}

func (r *fakeEventRepo) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return dbmongo.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) sorted(keep func(dbmongo.Event) bool) []dbmongo.Event {
	out := []dbmongo.Event{}
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}

func (r *fakeEventRepo) ListUpcoming(ctx context.Context, from time.Time, after *common.Cursor, limit int) ([]dbmongo.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(e dbmongo.Event) bool {
		if e.StartTime.Before(from) {
			return false
		}
		if after == nil {
			return true
		}
		return e.StartTime.After(after.Time) || (e.StartTime.Equal(after.Time) && e.ID.Hex() > after.ID)
	})
	if len(out) > limit+1 {
		out = out[:limit+1]
	}
	return out, nil
}

// FindNearby mimics the geo index with a coarse box so the service still has to filter.
func (r *fakeEventRepo) FindNearby(ctx context.Context, center *dbmongo.GeoPoint, radiusKm float64, from time.Time, limit int) ([]dbmongo.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(e dbmongo.Event) bool {
		return e.Location != nil && !e.StartTime.Before(from)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEventRepo) SearchByTitle(ctx context.Context, q string, limit int) ([]dbmongo.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(e dbmongo.Event) bool { return containsFold(e.Title, q) }), nil
}

func (r *fakeEventRepo) AddAttendee(ctx context.Context, id, uid primitive.ObjectID) (*dbmongo.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, dbmongo.ErrNotFound
	}
	for _, a := range e.Attendees {
		if a == uid {
			return &e, nil
		}
	}
	e.Attendees = append(append([]primitive.ObjectID{}, e.Attendees...), uid)
	r.events[id] = e
	return &e, nil
}

func (r *fakeEventRepo) RemoveAttendee(ctx context.Context, id, uid primitive.ObjectID) (*dbmongo.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, dbmongo.ErrNotFound
	}
	kept := []primitive.ObjectID{}
	for _, a := range e.Attendees {
		if a != uid {
			kept = append(kept, a)
		}
	}
	e.Attendees = kept
	r.events[id] = e
	return &e, nil
}

type fakeUsers map[string]*dbmongo.User

func (f fakeUsers) GetUserByID(ctx context.Context, id string) (*dbmongo.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, dbmongo.ErrNotFound
	}
	return u, nil
}

func (f fakeUsers) GetUsersByIDs(ctx context.Context, ids []string) ([]*dbmongo.User, error) {
	out := []*dbmongo.User{}
	for _, id := range ids {
		if u, ok := f[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type rsvpCall struct{ attendee, owner, event string }

type recordingNotifier struct {
	mu    sync.Mutex
	calls []rsvpCall
}

func (n *recordingNotifier) NotifyRSVP(attendeeID, ownerID, eventID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, rsvpCall{attendeeID, ownerID, eventID})
}
