package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
)

const (
	defaultPageLimit    = 20
	maxPageLimit        = 100
	defaultCommentLimit = 50
	maxCommentLimit     = 200
	maxContentLength    = 5000
)

// FollowingLister is satisfied by user.FollowRepository.
type FollowingLister interface {
	ListFollowingIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

// UserGetter is satisfied by user.UserRepository.
type UserGetter interface {
	GetUserByID(ctx context.Context, userID string) (*dbmongo.User, error)
}

type Page struct {
	Items      []dbmongo.Post
	NextCursor string
}

type FeedUsecase interface {
	CreatePost(ctx context.Context, authorID, content, imageURL string) (*dbmongo.Post, error)
	GetPost(ctx context.Context, postID string) (*dbmongo.Post, error)
	DeletePost(ctx context.Context, userID, postID string) error
	ToggleLike(ctx context.Context, userID, postID string) (bool, int, error)

	AddComment(ctx context.Context, userID, postID, content string) (*dbmongo.Comment, error)
	ListComments(ctx context.Context, postID string, limit int) ([]dbmongo.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID string) error

	GetTimeline(ctx context.Context, userID, cursor string, limit int) (*Page, error)
	GetUserPosts(ctx context.Context, authorID, cursor string, limit int) (*Page, error)
}

type FeedService struct {
	postRepo    Posts
	likeRepo    Likes
	commentRepo Comments
	following   FollowingLister
	users       UserGetter
	logger      *zap.Logger
}

func NewFeedService(p Posts, l Likes, c Comments, f FollowingLister, u UserGetter, logger *zap.Logger) *FeedService {
	return &FeedService{
		postRepo:    p,
		likeRepo:    l,
		commentRepo: c,
		following:   f,
		users:       u,
		logger:      logger,
	}
}

func postNotFound(err error) error {
	if errors.Is(err, dbmongo.ErrNotFound) {
		return common.NotFound("Post not found")
	}
	return fmt.Errorf("failed to load post: %w", err)
}

// --------- POSTS ---------

func (s *FeedService) CreatePost(ctx context.Context, authorID, content, imageURL string) (*dbmongo.Post, error) {
	author, err := dbmongo.ParseID(authorID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	content = strings.TrimSpace(content)
	imageURL = strings.TrimSpace(imageURL)
	if content == "" && imageURL == "" {
		return nil, common.Unprocessable("content or image_url is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, common.Unprocessable("content must be at most %d characters long", maxContentLength)
	}

	post := &dbmongo.Post{
		AuthorID: author,
		Content:  content,
		ImageURL: imageURL,
		Likes:    []primitive.ObjectID{},
	}
	if err := s.postRepo.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

func (s *FeedService) GetPost(ctx context.Context, postID string) (*dbmongo.Post, error) {
	post, err := s.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, postNotFound(err)
	}
	return post, nil
}

// DeletePost removes the post first; its comments go afterwards and a failure there is only logged.
func (s *FeedService) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		return postNotFound(err)
	}
	if post.AuthorID.Hex() != userID {
		return common.Forbidden("You can only delete your own posts")
	}
	if err := s.postRepo.DeletePost(ctx, postID); err != nil {
		return postNotFound(err)
	}
	if n, err := s.commentRepo.DeleteCommentsForPost(ctx, post.ID); err != nil {
		s.logger.Warn("failed to delete comments of post", zap.String("post_id", postID), zap.Error(err))
	} else if n > 0 {
		s.logger.Debug("deleted comments of post", zap.String("post_id", postID), zap.Int64("count", n))
	}
	return nil
}

// --------- LIKES ---------

// ToggleLike reports whether the user likes the post afterwards and the new like count.
func (s *FeedService) ToggleLike(ctx context.Context, userID, postID string) (bool, int, error) {
	uid, err := dbmongo.ParseID(userID)
	if err != nil {
		return false, 0, common.Unauthorized("Not authenticated")
	}
	post, err := s.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		return false, 0, postNotFound(err)
	}

	liked := funk.Contains(post.Likes, uid)
	if liked {
		post, err = s.likeRepo.RemoveLike(ctx, post.ID, uid)
	} else {
		post, err = s.likeRepo.AddLike(ctx, post.ID, uid)
	}
	if err != nil {
		return false, 0, postNotFound(err)
	}
	return !liked, len(post.Likes), nil
}

// --------- COMMENTS ---------

func (s *FeedService) AddComment(ctx context.Context, userID, postID, content string) (*dbmongo.Comment, error) {
	uid, err := dbmongo.ParseID(userID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.Unprocessable("content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, common.Unprocessable("content must be at most %d characters long", maxContentLength)
	}

	post, err := s.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, postNotFound(err)
	}

	comment := &dbmongo.Comment{PostID: post.ID, AuthorID: uid, Content: content}
	if err := s.commentRepo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

func (s *FeedService) ListComments(ctx context.Context, postID string, limit int) ([]dbmongo.Comment, error) {
	post, err := s.postRepo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, postNotFound(err)
	}
	comments, err := s.commentRepo.ListComments(ctx, post.ID, common.ClampLimit(limit, defaultCommentLimit, maxCommentLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *FeedService) DeleteComment(ctx context.Context, userID, commentID string) error {
	comment, err := s.commentRepo.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return common.NotFound("Comment not found")
		}
		return fmt.Errorf("failed to load comment: %w", err)
	}
	if comment.AuthorID.Hex() != userID {
		return common.Forbidden("You can only delete your own comments")
	}
	if err := s.commentRepo.DeleteComment(ctx, comment); err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return common.NotFound("Comment not found")
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// --------- TIMELINE ---------

func (s *FeedService) page(ctx context.Context, authors []primitive.ObjectID, cursor string, limit int) (*Page, error) {
	after, err := common.ParseCursorParam(cursor)
	if err != nil {
		return nil, err
	}
	limit = common.ClampLimit(limit, defaultPageLimit, maxPageLimit)

	posts, err := s.postRepo.ListPosts(ctx, authors, after, limit)
	if err != nil {
		var he *common.HTTPError
		if errors.As(err, &he) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	items, next := common.Paginate(posts, limit, func(p dbmongo.Post) (time.Time, string) {
		return p.CreatedAt, p.ID.Hex()
	})
	return &Page{Items: items, NextCursor: next}, nil
}

// GetTimeline pages over the user's own posts and those of everyone they follow.
func (s *FeedService) GetTimeline(ctx context.Context, userID, cursor string, limit int) (*Page, error) {
	ids, err := s.following.ListFollowingIDs(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	authors, err := dbmongo.ParseIDs(append([]string{userID}, ids...))
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	return s.page(ctx, authors, cursor, limit)
}

func (s *FeedService) GetUserPosts(ctx context.Context, authorID, cursor string, limit int) (*Page, error) {
	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, dbmongo.ErrNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return s.page(ctx, []primitive.ObjectID{author.ID}, cursor, limit)
}
