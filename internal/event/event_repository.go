package event

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medious/internal/common"
	"medious/internal/dbmongo"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event *dbmongo.Event) error
	GetEventByID(ctx context.Context, eventID string) (*dbmongo.Event, error)
	// UpdateEvent overwrites the editable fields of an existing event.
	UpdateEvent(ctx context.Context, event *dbmongo.Event) error
	DeleteEvent(ctx context.Context, eventID primitive.ObjectID) error

	// ListUpcoming pages events starting at or after from, soonest first, fetching limit+1 rows.
	ListUpcoming(ctx context.Context, from time.Time, after *common.Cursor, limit int) ([]dbmongo.Event, error)
	FindNearby(ctx context.Context, center *dbmongo.GeoPoint, radiusKm float64, from time.Time, limit int) ([]dbmongo.Event, error)
	SearchByTitle(ctx context.Context, query string, limit int) ([]dbmongo.Event, error)

	AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*dbmongo.Event, error)
	RemoveAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*dbmongo.Event, error)
}

type eventRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewEventRepository(mc *dbmongo.MongoClient) EventRepository {
	return newEventRepository(mc.Collection(dbmongo.EventsCollection))
}

func newEventRepository(coll *mongo.Collection) *eventRepository {
	return &eventRepository{coll: coll, now: time.Now}
}

func (r *eventRepository) CreateEvent(ctx context.Context, event *dbmongo.Event) error {
	now := r.now().UTC().Truncate(time.Millisecond)
	event.CreatedAt, event.UpdatedAt = now, now
	if event.Attendees == nil {
		event.Attendees = []primitive.ObjectID{}
	}
	res, err := r.coll.InsertOne(ctx, event)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid
	}
	return nil
}

func (r *eventRepository) GetEventByID(ctx context.Context, eventID string) (*dbmongo.Event, error) {
	oid, err := dbmongo.ParseID(eventID)
	if err != nil {
		return nil, err
	}
	var event dbmongo.Event
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&event); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &event, nil
}

func (r *eventRepository) UpdateEvent(ctx context.Context, event *dbmongo.Event) error {
	event.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"title":         event.Title,
		"description":   event.Description,
		"start_time":    event.StartTime,
		"location_name": event.LocationName,
		"updated_at":    event.UpdatedAt,
	}
	update := bson.M{"$set": set}
	unset := bson.M{}
	if event.EndTime != nil {
		set["end_time"] = event.EndTime
	} else {
		unset["end_time"] = ""
	}
	if event.Location != nil {
		set["location"] = event.Location
	} else {
		unset["location"] = ""
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": event.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return dbmongo.ErrNotFound
	}
	return nil
}

func (r *eventRepository) DeleteEvent(ctx context.Context, eventID primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": eventID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return dbmongo.ErrNotFound
	}
	return nil
}

func (r *eventRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]dbmongo.Event, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	events := []dbmongo.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, from time.Time, after *common.Cursor, limit int) ([]dbmongo.Event, error) {
	page, err := dbmongo.CursorFilter("start_time", after, false)
	if err != nil {
		return nil, err
	}
	filter := dbmongo.And(bson.D{{Key: "start_time", Value: bson.D{{Key: "$gte", Value: from.UTC()}}}}, page)
	return r.find(ctx, filter, dbmongo.PageOptions("start_time", limit, false))
}

// FindNearby returns upcoming events nearest first.
func (r *eventRepository) FindNearby(ctx context.Context, center *dbmongo.GeoPoint, radiusKm float64, from time.Time, limit int) ([]dbmongo.Event, error) {
	filter := bson.D{
		{Key: "location", Value: dbmongo.NearSphere(center, radiusKm)},
		{Key: "start_time", Value: bson.D{{Key: "$gte", Value: from.UTC()}}},
	}
	return r.find(ctx, filter, options.Find().SetLimit(int64(limit)))
}

func (r *eventRepository) SearchByTitle(ctx context.Context, query string, limit int) ([]dbmongo.Event, error) {
	filter := bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}
	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "start_time", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *eventRepository) AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*dbmongo.Event, error) {
	return r.updateAttendees(ctx, eventID, bson.M{"$addToSet": bson.M{"attendees": userID}})
}

func (r *eventRepository) RemoveAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*dbmongo.Event, error) {
	return r.updateAttendees(ctx, eventID, bson.M{"$pull": bson.M{"attendees": userID}})
}

func (r *eventRepository) updateAttendees(ctx context.Context, eventID primitive.ObjectID, update bson.M) (*dbmongo.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var event dbmongo.Event
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": eventID}, update, opts).Decode(&event); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &event, nil
}
