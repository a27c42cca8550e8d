package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"medious/internal/common"
	"medious/internal/dbmongo"
)

// Conversation is one row of the per-partner aggregation.
type Conversation struct {
	PartnerID   primitive.ObjectID `bson:"_id"`
	LastMessage dbmongo.Message    `bson:"last_message"`
	UnreadCount int                `bson:"unread_count"`
}

type ChatRepository interface {
	Save(ctx context.Context, msg *dbmongo.Message) error
	GetByID(ctx context.Context, messageID string) (*dbmongo.Message, error)
	// FetchHistory returns messages between a and b newest first, fetching limit+1 rows.
	FetchHistory(ctx context.Context, a, b primitive.ObjectID, after *common.Cursor, limit int) ([]dbmongo.Message, error)
	MarkRead(ctx context.Context, messageID primitive.ObjectID) error
	// MarkConversationRead flags every unread message from sender to receiver.
	MarkConversationRead(ctx context.Context, senderID, receiverID primitive.ObjectID) (int64, error)
	CountUnread(ctx context.Context, receiverID primitive.ObjectID) (int64, error)
	Conversations(ctx context.Context, userID primitive.ObjectID) ([]Conversation, error)
}

type chatRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewChatRepository(mc *dbmongo.MongoClient) ChatRepository {
	return newChatRepo(mc.Collection(dbmongo.MessagesCollection))
}

func newChatRepo(coll *mongo.Collection) *chatRepo {
	return &chatRepo{coll: coll, now: time.Now}
}

func (r *chatRepo) Save(ctx context.Context, msg *dbmongo.Message) error {
	msg.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	res, err := r.coll.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

func (r *chatRepo) GetByID(ctx context.Context, messageID string) (*dbmongo.Message, error) {
	oid, err := dbmongo.ParseID(messageID)
	if err != nil {
		return nil, err
	}
	var msg dbmongo.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &msg, nil
}

func between(a, b primitive.ObjectID) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "sender_id", Value: a}, {Key: "receiver_id", Value: b}},
		bson.D{{Key: "sender_id", Value: b}, {Key: "receiver_id", Value: a}},
	}}}
}

func (r *chatRepo) FetchHistory(ctx context.Context, a, b primitive.ObjectID, after *common.Cursor, limit int) ([]dbmongo.Message, error) {
	page, err := dbmongo.CursorFilter("created_at", after, true)
	if err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx, dbmongo.And(between(a, b), page), dbmongo.PageOptions("created_at", limit, true))
	if err != nil {
		return nil, err
	}
	messages := []dbmongo.Message{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatRepo) MarkRead(ctx context.Context, messageID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return dbmongo.ErrNotFound
	}
	return nil
}

func (r *chatRepo) MarkConversationRead(ctx context.Context, senderID, receiverID primitive.ObjectID) (int64, error) {
	filter := bson.M{"sender_id": senderID, "receiver_id": receiverID, "read": false}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *chatRepo) CountUnread(ctx context.Context, receiverID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"receiver_id": receiverID, "read": false})
}

// Conversations groups the user's messages by partner, most recently active first.
func (r *chatRepo) Conversations(ctx context.Context, userID primitive.ObjectID) ([]Conversation, error) {
	unread := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$receiver_id", userID}}},
		bson.D{{Key: "$eq", Value: bson.A{"$read", false}}},
	}}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "sender_id", Value: userID}},
			bson.D{{Key: "receiver_id", Value: userID}},
		}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$sender_id", userID}}}, "$receiver_id", "$sender_id",
			}}}},
			{Key: "last_message", Value: bson.D{{Key: "$first", Value: "$$ROOT"}}},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{unread, 1, 0}}}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message.created_at", Value: -1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := []Conversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
