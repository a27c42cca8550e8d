package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"medious/internal/common"
	"medious/internal/dbmongo"
	"medious/internal/metrics"
)

const (
	maxCaptionLength = 500
	sweepBatchSize   = 500
)

// MediaStore is satisfied by *dbmongo.MediaStorage.
type MediaStore interface {
	UploadFile(ctx context.Context, filename, mimeType, uploaderID string, content io.Reader) (*dbmongo.MediaFile, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// FollowingLister is satisfied by user.FollowRepository.
type FollowingLister interface {
	ListFollowingIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, userIDs []string) ([]*dbmongo.User, error)
}

// AuthorStories is one author's unexpired stories, newest first.
type AuthorStories struct {
	Author  *dbmongo.User
	Stories []dbmongo.Story
}

type UploadInput struct {
	Filename string
	MimeType string
	Caption  string
	Content  io.Reader
}

type StoryService interface {
	CreateStory(ctx context.Context, authorID, mediaURL, caption string) (*dbmongo.Story, error)
	UploadStory(ctx context.Context, authorID string, in UploadInput) (*dbmongo.Story, error)
	ListStories(ctx context.Context, userID string) ([]AuthorStories, error)
	ViewStory(ctx context.Context, userID, storyID string) (int, error)
	Viewers(ctx context.Context, userID, storyID string) ([]*dbmongo.User, error)
	DeleteStory(ctx context.Context, userID, storyID string) error
	// SweepExpired removes expired stories and their media, returning how many were deleted.
	SweepExpired(ctx context.Context) (int, error)
}

type storyService struct {
	stories      StoryRepository
	media        MediaStore
	following    FollowingLister
	users        UserDirectory
	mediaBaseURL string
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewStoryService(stories StoryRepository, media MediaStore, following FollowingLister, users UserDirectory,
	mediaBaseURL string, m *metrics.Metrics, logger *zap.Logger) StoryService {
	return &storyService{
		stories:      stories,
		media:        media,
		following:    following,
		users:        users,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

func storyNotFound(err error) error {
	if errors.Is(err, dbmongo.ErrNotFound) {
		return common.NotFound("Story not found")
	}
	return fmt.Errorf("failed to load story: %w", err)
}

func validateCaption(caption string) (string, error) {
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > maxCaptionLength {
		return "", common.Unprocessable("caption must be at most %d characters long", maxCaptionLength)
	}
	return caption, nil
}

func (s *storyService) CreateStory(ctx context.Context, authorID, mediaURL, caption string) (*dbmongo.Story, error) {
	author, err := dbmongo.ParseID(authorID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	mediaURL = strings.TrimSpace(mediaURL)
	if mediaURL == "" {
		return nil, common.Unprocessable("media_url is required")
	}
	caption, err = validateCaption(caption)
	if err != nil {
		return nil, err
	}

	story := &dbmongo.Story{AuthorID: author, MediaURL: mediaURL, Caption: caption}
	if err := s.stories.CreateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	return story, nil
}

// UploadStory stores the media in GridFS and points the story at the media endpoint.
func (s *storyService) UploadStory(ctx context.Context, authorID string, in UploadInput) (*dbmongo.Story, error) {
	author, err := dbmongo.ParseID(authorID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	caption, err := validateCaption(in.Caption)
	if err != nil {
		return nil, err
	}
	if _, ok := common.DetectFileType(in.MimeType); !ok {
		return nil, common.Unprocessable("Only image and video files are supported")
	}

	file, err := s.media.UploadFile(ctx, in.Filename, in.MimeType, authorID, in.Content)
	if err != nil {
		if errors.Is(err, dbmongo.ErrUnsupportedMedia) {
			return nil, common.Unprocessable("Only image and video files are supported")
		}
		return nil, fmt.Errorf("failed to store media: %w", err)
	}

	story := &dbmongo.Story{
		AuthorID:    author,
		MediaURL:    s.mediaBaseURL + "/" + file.ID,
		MediaFileID: file.ID,
		Caption:     caption,
	}
	if err := s.stories.CreateStory(ctx, story); err != nil {
		if delErr := s.media.DeleteFile(ctx, file.ID); delErr != nil {
			s.logger.Warn("failed to remove orphaned media", zap.String("file_id", file.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	s.logger.Info("story media uploaded",
		zap.String("story_id", story.ID.Hex()),
		zap.String("file_id", file.ID),
		zap.Int64("size", file.Size))
	return story, nil
}

// ListStories groups the caller's own stories first, then followed authors by most recent story.
func (s *storyService) ListStories(ctx context.Context, userID string) ([]AuthorStories, error) {
	me, err := dbmongo.ParseID(userID)
	if err != nil {
		return nil, common.Unauthorized("Not authenticated")
	}
	followingIDs, err := s.following.ListFollowingIDs(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load following: %w", err)
	}
	followed, err := dbmongo.ParseIDs(followingIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse following ids: %w", err)
	}

	stories, err := s.stories.ListActive(ctx, append([]primitive.ObjectID{me}, followed...), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	if len(stories) == 0 {
		return []AuthorStories{}, nil
	}

	order := []primitive.ObjectID{}
	grouped := map[primitive.ObjectID][]dbmongo.Story{}
	for _, st := range stories {
		if _, seen := grouped[st.AuthorID]; !seen {
			order = append(order, st.AuthorID)
		}
		grouped[st.AuthorID] = append(grouped[st.AuthorID], st)
	}
	if i := funk.IndexOf(order, me); i > 0 {
		order = append([]primitive.ObjectID{me}, append(order[:i:i], order[i+1:]...)...)
	}

	authorIDs := funk.Map(order, func(id primitive.ObjectID) string { return id.Hex() }).([]string)
	authors, err := s.users.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load story authors: %w", err)
	}
	byID := make(map[primitive.ObjectID]*dbmongo.User, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}

	out := make([]AuthorStories, 0, len(order))
	for _, id := range order {
		author, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, AuthorStories{Author: author, Stories: grouped[id]})
	}
	return out, nil
}

// ViewStory is idempotent per viewer. Authors viewing their own story are not counted.
func (s *storyService) ViewStory(ctx context.Context, userID, storyID string) (int, error) {
	viewer, err := dbmongo.ParseID(userID)
	if err != nil {
		return 0, common.Unauthorized("Not authenticated")
	}
	story, err := s.activeStory(ctx, storyID)
	if err != nil {
		return 0, err
	}
	if story.AuthorID == viewer {
		return len(story.Views), nil
	}

	story, err = s.stories.AddView(ctx, story.ID, viewer, s.now())
	if err != nil {
		return 0, storyNotFound(err)
	}
	return len(story.Views), nil
}

func (s *storyService) activeStory(ctx context.Context, storyID string) (*dbmongo.Story, error) {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, storyNotFound(err)
	}
	if !story.ExpiresAt.After(s.now()) {
		return nil, common.NotFound("Story not found")
	}
	return story, nil
}

func (s *storyService) ownStory(ctx context.Context, userID, storyID string) (*dbmongo.Story, error) {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, storyNotFound(err)
	}
	if story.AuthorID.Hex() != userID {
		return nil, common.Forbidden("You can only manage your own stories")
	}
	return story, nil
}

func (s *storyService) Viewers(ctx context.Context, userID, storyID string) ([]*dbmongo.User, error) {
	story, err := s.ownStory(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	if len(story.Views) == 0 {
		return []*dbmongo.User{}, nil
	}
	ids := funk.Map(story.Views, func(id primitive.ObjectID) string { return id.Hex() }).([]string)
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load viewers: %w", err)
	}
	return users, nil
}

func (s *storyService) DeleteStory(ctx context.Context, userID, storyID string) error {
	story, err := s.ownStory(ctx, userID, storyID)
	if err != nil {
		return err
	}
	if err := s.stories.DeleteStory(ctx, story.ID); err != nil {
		return storyNotFound(err)
	}
	s.removeMedia(ctx, story)
	return nil
}

func (s *storyService) removeMedia(ctx context.Context, story *dbmongo.Story) {
	if story.MediaFileID == "" {
		return
	}
	if err := s.media.DeleteFile(ctx, story.MediaFileID); err != nil && !errors.Is(err, dbmongo.ErrNotFound) {
		s.logger.Warn("failed to delete story media",
			zap.String("story_id", story.ID.Hex()),
			zap.String("file_id", story.MediaFileID),
			zap.Error(err))
	}
}

func (s *storyService) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		expired, err := s.stories.ListExpired(ctx, s.now(), sweepBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list expired stories: %w", err)
		}
		if len(expired) == 0 {
			break
		}
		ids := make([]primitive.ObjectID, 0, len(expired))
		for i := range expired {
			s.removeMedia(ctx, &expired[i])
			ids = append(ids, expired[i].ID)
		}
		n, err := s.stories.DeleteByIDs(ctx, ids)
		if err != nil {
			return total, fmt.Errorf("failed to delete expired stories: %w", err)
		}
		total += int(n)
		s.metrics.StoriesSwept(int(n))
		if len(expired) < sweepBatchSize || n == 0 {
			break
		}
	}
	return total, nil
}
