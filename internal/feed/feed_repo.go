package feed

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medious/internal/common"
	"medious/internal/dbmongo"
)

type FeedRepository struct {
	posts    *mongo.Collection
	comments *mongo.Collection
	now      func() time.Time
}

func NewFeedRepository(mc *dbmongo.MongoClient) *FeedRepository {
	return newFeedRepository(mc.Collection(dbmongo.PostsCollection), mc.Collection(dbmongo.CommentsCollection))
}

func newFeedRepository(posts, comments *mongo.Collection) *FeedRepository {
	return &FeedRepository{posts: posts, comments: comments, now: time.Now}
}

// --------- POSTS ---------
type Posts interface {
	CreatePost(ctx context.Context, post *dbmongo.Post) error
	GetPostByID(ctx context.Context, id string) (*dbmongo.Post, error)
	DeletePost(ctx context.Context, id string) error
	// ListPosts pages newest first over the given authors, fetching limit+1 rows.
	ListPosts(ctx context.Context, authorIDs []primitive.ObjectID, after *common.Cursor, limit int) ([]dbmongo.Post, error)
}

func (r *FeedRepository) CreatePost(ctx context.Context, post *dbmongo.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	res, err := r.posts.InsertOne(ctx, post)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid
	}
	return nil
}

func (r *FeedRepository) GetPostByID(ctx context.Context, id string) (*dbmongo.Post, error) {
	oid, err := dbmongo.ParseID(id)
	if err != nil {
		return nil, err
	}
	var post dbmongo.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &post, nil
}

func (r *FeedRepository) DeletePost(ctx context.Context, id string) error {
	oid, err := dbmongo.ParseID(id)
	if err != nil {
		return err
	}
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return dbmongo.ErrNotFound
	}
	return nil
}

func (r *FeedRepository) ListPosts(ctx context.Context, authorIDs []primitive.ObjectID, after *common.Cursor, limit int) ([]dbmongo.Post, error) {
	page, err := dbmongo.CursorFilter("created_at", after, true)
	if err != nil {
		return nil, err
	}
	filter := dbmongo.And(bson.D{{Key: "author_id", Value: bson.D{{Key: "$in", Value: authorIDs}}}}, page)

	cur, err := r.posts.Find(ctx, filter, dbmongo.PageOptions("created_at", limit, true))
	if err != nil {
		return nil, err
	}
	posts := []dbmongo.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// --------- LIKES ---------
type Likes interface {
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*dbmongo.Post, error)
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*dbmongo.Post, error)
}

// AddLike and RemoveLike return the post as it is after the update.
func (r *FeedRepository) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*dbmongo.Post, error) {
	return r.updatePost(ctx, postID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (r *FeedRepository) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*dbmongo.Post, error) {
	return r.updatePost(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (r *FeedRepository) updatePost(ctx context.Context, postID primitive.ObjectID, update bson.M) (*dbmongo.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post dbmongo.Post
	if err := r.posts.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&post); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &post, nil
}

// --------- COMMENTS ---------
type Comments interface {
	CreateComment(ctx context.Context, comment *dbmongo.Comment) error
	GetCommentByID(ctx context.Context, id string) (*dbmongo.Comment, error)
	ListComments(ctx context.Context, postID primitive.ObjectID, limit int) ([]dbmongo.Comment, error)
	DeleteComment(ctx context.Context, comment *dbmongo.Comment) error
	DeleteCommentsForPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
}

// CreateComment inserts the comment and bumps the post's comment_count.
func (r *FeedRepository) CreateComment(ctx context.Context, comment *dbmongo.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}
	res, err := r.comments.InsertOne(ctx, comment)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		comment.ID = oid
	}
	_, err = r.posts.UpdateOne(ctx, bson.M{"_id": comment.PostID}, bson.M{"$inc": bson.M{"comment_count": 1}})
	return err
}

func (r *FeedRepository) GetCommentByID(ctx context.Context, id string) (*dbmongo.Comment, error) {
	oid, err := dbmongo.ParseID(id)
	if err != nil {
		return nil, err
	}
	var comment dbmongo.Comment
	if err := r.comments.FindOne(ctx, bson.M{"_id": oid}).Decode(&comment); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &comment, nil
}

// ListComments returns the oldest comments first.
func (r *FeedRepository) ListComments(ctx context.Context, postID primitive.ObjectID, limit int) ([]dbmongo.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.comments.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, err
	}
	comments := []dbmongo.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *FeedRepository) DeleteComment(ctx context.Context, comment *dbmongo.Comment) error {
	res, err := r.comments.DeleteOne(ctx, bson.M{"_id": comment.ID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return dbmongo.ErrNotFound
	}
	_, err = r.posts.UpdateOne(ctx,
		bson.M{"_id": comment.PostID, "comment_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"comment_count": -1}})
	return err
}

func (r *FeedRepository) DeleteCommentsForPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := r.comments.DeleteMany(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
