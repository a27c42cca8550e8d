package user

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medious/internal/dbmongo"
)

//go:generate mockgen -source=follow_repository.go -destination=mock_follow_repository_test.go -package=user

type FollowRepository interface {
	// Follow returns dbmongo.ErrDuplicate when the edge already exists.
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
	// A limit of zero lists every edge.
	ListFollowerIDs(ctx context.Context, userID string, limit int) ([]string, error)
	ListFollowingIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

type followRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewFollowRepository(mc *dbmongo.MongoClient) FollowRepository {
	return newFollowRepository(mc.Collection(dbmongo.FollowsCollection))
}

func newFollowRepository(coll *mongo.Collection) *followRepository {
	return &followRepository{coll: coll, now: time.Now}
}

func parseEdge(followerID, followingID string) (dbmongo.Follow, error) {
	follower, err := dbmongo.ParseID(followerID)
	if err != nil {
		return dbmongo.Follow{}, err
	}
	following, err := dbmongo.ParseID(followingID)
	if err != nil {
		return dbmongo.Follow{}, err
	}
	return dbmongo.Follow{FollowerID: follower, FollowingID: following}, nil
}

func (r *followRepository) edge(followerID, followingID string) (bson.M, error) {
	e, err := parseEdge(followerID, followingID)
	if err != nil {
		return nil, err
	}
	return bson.M{"follower_id": e.FollowerID, "following_id": e.FollowingID}, nil
}

func (r *followRepository) Follow(ctx context.Context, followerID, followingID string) error {
	doc, err := parseEdge(followerID, followingID)
	if err != nil {
		return err
	}
	doc.CreatedAt = r.now().UTC()
	_, err = r.coll.InsertOne(ctx, doc)
	return dbmongo.TranslateError(err)
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	filter, err := r.edge(followerID, followingID)
	if err != nil {
		return false, err
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	filter, err := r.edge(followerID, followingID)
	if err != nil {
		return false, err
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *followRepository) count(ctx context.Context, field, userID string) (int64, error) {
	oid, err := dbmongo.ParseID(userID)
	if err != nil {
		return 0, err
	}
	return r.coll.CountDocuments(ctx, bson.M{field: oid})
}

func (r *followRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "following_id", userID)
}

func (r *followRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, "follower_id", userID)
}

// listIDs matches on one side of the edge and returns the other side, newest first.
func (r *followRepository) listIDs(ctx context.Context, matchField, otherField, userID string, limit int) ([]string, error) {
	oid, err := dbmongo.ParseID(userID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{matchField: oid}, opts)
	if err != nil {
		return nil, err
	}
	var edges []dbmongo.Follow
	if err := cur.All(ctx, &edges); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		if otherField == "follower_id" {
			ids = append(ids, e.FollowerID.Hex())
		} else {
			ids = append(ids, e.FollowingID.Hex())
		}
	}
	return ids, nil
}

func (r *followRepository) ListFollowerIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	return r.listIDs(ctx, "following_id", "follower_id", userID, limit)
}

func (r *followRepository) ListFollowingIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	return r.listIDs(ctx, "follower_id", "following_id", userID, limit)
}
