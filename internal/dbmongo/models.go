package dbmongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const AuthProviderEmail = "email"

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	PasswordHash   *string            `bson:"password_hash,omitempty"`
	Name           string             `bson:"name"`
	AuthProvider   string             `bson:"auth_provider"`
	SupabaseUserID *string            `bson:"supabase_user_id,omitempty"` // sparse unique
	Avatar         *string            `bson:"avatar,omitempty"`
	Bio            *string            `bson:"bio,omitempty"`
	Location       *GeoPoint          `bson:"location,omitempty"`
	ResetToken     *string            `bson:"reset_token,omitempty"`
	ResetExpiry    *time.Time         `bson:"reset_expiry,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	FollowerID  primitive.ObjectID `bson:"follower_id"`
	FollowingID primitive.ObjectID `bson:"following_id"`
	CreatedAt   time.Time          `bson:"created_at"`
}

type Event struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	OwnerID      primitive.ObjectID   `bson:"owner_id"`
	Title        string               `bson:"title"`
	Description  string               `bson:"description"`
	StartTime    time.Time            `bson:"start_time"`
	EndTime      *time.Time           `bson:"end_time,omitempty"`
	LocationName string               `bson:"location_name,omitempty"`
	Location     *GeoPoint            `bson:"location,omitempty"`
	Attendees    []primitive.ObjectID `bson:"attendees"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

type Post struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	AuthorID     primitive.ObjectID   `bson:"author_id"`
	Content      string               `bson:"content"`
	ImageURL     string               `bson:"image_url,omitempty"`
	Likes        []primitive.ObjectID `bson:"likes"`
	CommentCount int                  `bson:"comment_count"`
	CreatedAt    time.Time            `bson:"created_at"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PostID    primitive.ObjectID `bson:"post_id"`
	AuthorID  primitive.ObjectID `bson:"author_id"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
}

type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SenderID   primitive.ObjectID `bson:"sender_id"`
	ReceiverID primitive.ObjectID `bson:"receiver_id"`
	Content    string             `bson:"content"`
	Read       bool               `bson:"read"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type Story struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	AuthorID    primitive.ObjectID   `bson:"author_id"`
	MediaURL    string               `bson:"media_url"`
	MediaFileID string               `bson:"media_file_id,omitempty"`
	Caption     string               `bson:"caption,omitempty"`
	Views       []primitive.ObjectID `bson:"views"`
	CreatedAt   time.Time            `bson:"created_at"`
	ExpiresAt   time.Time            `bson:"expires_at"`
}

const StoryLifetime = 24 * time.Hour
