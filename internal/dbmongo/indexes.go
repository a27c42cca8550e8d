package dbmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "supabase_user_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		FollowsCollection: {
			{Keys: bson.D{{Key: "follower_id", Value: 1}, {Key: "following_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "following_id", Value: 1}}},
		},
		EventsCollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		PostsCollection: {
			{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
		},
		StoriesCollection: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}

// EnsureIndexes creates every index the repositories rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range collectionIndexes() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
