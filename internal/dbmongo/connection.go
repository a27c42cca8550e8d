// Package dbmongo owns the MongoDB connection, collection layout and GridFS media storage.
package dbmongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"medious/internal/config"
)

const MediaBucketName = "media_files"

const (
	UsersCollection    = "users"
	FollowsCollection  = "follows"
	EventsCollection   = "events"
	PostsCollection    = "posts"
	CommentsCollection = "comments"
	MessagesCollection = "messages"
	StoriesCollection  = "stories"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	GridFS   *gridfs.Bucket
}

const (
	connectTimeout         = 10 * time.Second
	serverSelectionTimeout = 5 * time.Second
	maxPoolSize            = 100
)

// NewMongoConnection connects, pings the primary and opens the media bucket.
func NewMongoConnection(ctx context.Context, cfg *config.Config) (*MongoClient, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoDB.URL).
		SetAppName("medious").
		SetMaxPoolSize(maxPoolSize).
		SetServerSelectionTimeout(serverSelectionTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	mc, err := wrapClient(client, cfg.MongoDB.Database)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return mc, nil
}

func wrapClient(client *mongo.Client, dbName string) (*MongoClient, error) {
	db := client.Database(dbName)
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(MediaBucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &MongoClient{Client: client, Database: db, GridFS: bucket}, nil
}

func (mc *MongoClient) Collection(name string) *mongo.Collection {
	return mc.Database.Collection(name)
}

// Ping backs the health endpoint.
func (mc *MongoClient) Ping(ctx context.Context) error {
	return mc.Client.Ping(ctx, readpref.Primary())
}

func (mc *MongoClient) Close(ctx context.Context) error {
	return mc.Client.Disconnect(ctx)
}
