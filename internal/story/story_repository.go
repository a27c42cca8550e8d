package story

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medious/internal/dbmongo"
)

type StoryRepository interface {
	CreateStory(ctx context.Context, story *dbmongo.Story) error
	GetStoryByID(ctx context.Context, storyID string) (*dbmongo.Story, error)
	// ListActive returns stories by the given authors that expire after now, newest first.
	ListActive(ctx context.Context, authorIDs []primitive.ObjectID, now time.Time) ([]dbmongo.Story, error)
	// AddView records viewerID once; an expired or missing story is ErrNotFound.
	AddView(ctx context.Context, storyID, viewerID primitive.ObjectID, now time.Time) (*dbmongo.Story, error)
	DeleteStory(ctx context.Context, storyID primitive.ObjectID) error

	ListExpired(ctx context.Context, now time.Time, limit int) ([]dbmongo.Story, error)
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

type storyRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewStoryRepository(mc *dbmongo.MongoClient) StoryRepository {
	return newStoryRepository(mc.Collection(dbmongo.StoriesCollection))
}

func newStoryRepository(coll *mongo.Collection) *storyRepository {
	return &storyRepository{coll: coll, now: time.Now}
}

func (r *storyRepository) CreateStory(ctx context.Context, story *dbmongo.Story) error {
	story.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	story.ExpiresAt = story.CreatedAt.Add(dbmongo.StoryLifetime)
	if story.Views == nil {
		story.Views = []primitive.ObjectID{}
	}
	res, err := r.coll.InsertOne(ctx, story)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		story.ID = oid
	}
	return nil
}

func (r *storyRepository) GetStoryByID(ctx context.Context, storyID string) (*dbmongo.Story, error) {
	oid, err := dbmongo.ParseID(storyID)
	if err != nil {
		return nil, err
	}
	var story dbmongo.Story
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&story); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &story, nil
}

func (r *storyRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]dbmongo.Story, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	stories := []dbmongo.Story{}
	if err := cur.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepository) ListActive(ctx context.Context, authorIDs []primitive.ObjectID, now time.Time) ([]dbmongo.Story, error) {
	if len(authorIDs) == 0 {
		return []dbmongo.Story{}, nil
	}
	filter := bson.D{
		{Key: "author_id", Value: bson.D{{Key: "$in", Value: authorIDs}}},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now.UTC()}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, filter, opts)
}

func (r *storyRepository) AddView(ctx context.Context, storyID, viewerID primitive.ObjectID, now time.Time) (*dbmongo.Story, error) {
	filter := bson.D{
		{Key: "_id", Value: storyID},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now.UTC()}}},
	}
	update := bson.M{"$addToSet": bson.M{"views": viewerID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var story dbmongo.Story
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&story); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &story, nil
}

func (r *storyRepository) DeleteStory(ctx context.Context, storyID primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": storyID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return dbmongo.ErrNotFound
	}
	return nil
}

func (r *storyRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]dbmongo.Story, error) {
	filter := bson.M{"expires_at": bson.M{"$lte": now.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *storyRepository) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
