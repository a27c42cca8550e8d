package user

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medious/internal/dbmongo"
)

//go:generate mockgen -source=user_repository.go -destination=mock_repository_test.go -package=user

// ProfileUpdate holds the profile fields a user may change; nil means unchanged.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Bio    *string `json:"bio,omitempty"`
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *dbmongo.User) error
	GetUserByID(ctx context.Context, userID string) (*dbmongo.User, error)
	GetUserByEmail(ctx context.Context, email string) (*dbmongo.User, error)
	GetUserBySupabaseID(ctx context.Context, supabaseUserID string) (*dbmongo.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]*dbmongo.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*dbmongo.User, error)

	UpdateLocation(ctx context.Context, userID string, location *dbmongo.GeoPoint) error
	FindNearby(ctx context.Context, center *dbmongo.GeoPoint, radiusKm float64, excludeID string, limit int) ([]*dbmongo.User, error)
	SearchByName(ctx context.Context, query string, limit int) ([]*dbmongo.User, error)

	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error
	// ResetPassword reports false when no user matches email and token with an unexpired token.
	ResetPassword(ctx context.Context, email, token, passwordHash string, now time.Time) (bool, error)
}

type userRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(mc *dbmongo.MongoClient) UserRepository {
	return newUserRepository(mc.Collection(dbmongo.UsersCollection))
}

func newUserRepository(coll *mongo.Collection) *userRepository {
	return &userRepository{coll: coll, now: time.Now}
}

func (r *userRepository) CreateUser(ctx context.Context, user *dbmongo.User) error {
	res, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		return dbmongo.TranslateError(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*dbmongo.User, error) {
	var user dbmongo.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*dbmongo.User, error) {
	oid, err := dbmongo.ParseID(userID)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*dbmongo.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) GetUserBySupabaseID(ctx context.Context, supabaseUserID string) (*dbmongo.User, error) {
	return r.findOne(ctx, bson.M{"supabase_user_id": supabaseUserID})
}

func (r *userRepository) GetUsersByIDs(ctx context.Context, userIDs []string) ([]*dbmongo.User, error) {
	if len(userIDs) == 0 {
		return []*dbmongo.User{}, nil
	}
	oids, err := dbmongo.ParseIDs(userIDs)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *userRepository) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]*dbmongo.User, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	users := []*dbmongo.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*dbmongo.User, error) {
	oid, err := dbmongo.ParseID(userID)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": r.now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user dbmongo.User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&user); err != nil {
		return nil, dbmongo.TranslateError(err)
	}
	return &user, nil
}

func (r *userRepository) UpdateLocation(ctx context.Context, userID string, location *dbmongo.GeoPoint) error {
	oid, err := dbmongo.ParseID(userID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"location":   location,
		"updated_at": r.now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return dbmongo.ErrNotFound
	}
	return nil
}

// FindNearby relies on the 2dsphere index; results come back nearest first.
func (r *userRepository) FindNearby(ctx context.Context, center *dbmongo.GeoPoint, radiusKm float64, excludeID string, limit int) ([]*dbmongo.User, error) {
	filter := bson.D{{Key: "location", Value: dbmongo.NearSphere(center, radiusKm)}}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter = append(filter, bson.E{Key: "_id", Value: bson.M{"$ne": oid}})
	}
	return r.find(ctx, filter, options.Find().SetLimit(int64(limit)))
}

func (r *userRepository) SearchByName(ctx context.Context, query string, limit int) ([]*dbmongo.User, error) {
	filter := bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}
	return r.find(ctx, filter, options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *userRepository) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	oid, err := dbmongo.ParseID(userID)
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"reset_token":  token,
		"reset_expiry": expiry.UTC(),
	}})
	return err
}

func (r *userRepository) ResetPassword(ctx context.Context, email, token, passwordHash string, now time.Time) (bool, error) {
	filter := bson.M{
		"email":        email,
		"reset_token":  token,
		"reset_expiry": bson.M{"$gt": now.UTC()},
	}
	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash, "updated_at": now.UTC()},
		"$unset": bson.M{"reset_token": "", "reset_expiry": ""},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
