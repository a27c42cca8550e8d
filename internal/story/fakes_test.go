package story

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medious/internal/dbmongo"
)

// fakeStoryRepo keeps stories in memory; clock is shared with the service under test.
type fakeStoryRepo struct {
	mu      sync.Mutex
	stories map[primitive.ObjectID]dbmongo.Story
	clock   func() time.Time
}

func newFakeStoryRepo(clock func() time.Time) *fakeStoryRepo {
	return &fakeStoryRepo{stories: map[primitive.ObjectID]dbmongo.Story{}, clock: clock}
}

var _ StoryRepository = (*fakeStoryRepo)(nil)

func (r *fakeStoryRepo) CreateStory(ctx context.Context, st *dbmongo.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st.ID = primitive.NewObjectID()
	st.CreatedAt = r.clock().UTC()
	st.ExpiresAt = st.CreatedAt.Add(dbmongo.StoryLifetime)
	if st.Views == nil {
		st.Views = []primitive.ObjectID{}
	}
	r.stories[st.ID] = *st
	return nil
}

func (r *fakeStoryRepo) GetStoryByID(ctx context.Context, id string) (*dbmongo.Story, error) {
	oid, err := dbmongo.ParseID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stories[oid]
	if !ok {
		return nil, dbmongo.ErrNotFound
	}
	st.Views = append([]primitive.ObjectID{}, st.Views...)
	return &st, nil
}

func (r *fakeStoryRepo) ListActive(ctx context.Context, authors []primitive.ObjectID, now time.Time) ([]dbmongo.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[primitive.ObjectID]bool{}
	for _, a := range authors {
		wanted[a] = true
	}
	out := []dbmongo.Story{}
	for _, st := range r.stories {
		if wanted[st.AuthorID] && st.ExpiresAt.After(now) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r *fakeStoryRepo) AddView(ctx context.Context, id, viewer primitive.ObjectID, now time.Time) (*dbmongo.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stories[id]
	if !ok || !st.ExpiresAt.After(now) {
		return nil, dbmongo.ErrNotFound
	}
	for _, v := range st.Views {
		if v == viewer {
			return &st, nil
		}
	}
	st.Views = append(append([]primitive.ObjectID{}, st.Views...), viewer)
	r.stories[id] = st
	return &st, nil
}

func (r *fakeStoryRepo) DeleteStory(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stories[id]; !ok {
		return dbmongo.ErrNotFound
	}
	delete(r.stories, id)
	return nil
}

func (r *fakeStoryRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]dbmongo.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []dbmongo.Story{}
	for _, st := range r.stories {
		if !st.ExpiresAt.After(now) && len(out) < limit {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeStoryRepo) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.stories[id]; ok {
			delete(r.stories, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeStoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stories)
}

type fakeMedia struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newFakeMedia() *fakeMedia { return &fakeMedia{files: map[string][]byte{}} }

var _ MediaStore = (*fakeMedia)(nil)
var _ MediaStore = (*dbmongo.MediaStorage)(nil)

func (m *fakeMedia) UploadFile(ctx context.Context, filename, mimeType, uploaderID string, content io.Reader) (*dbmongo.MediaFile, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, content)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID().Hex()
	m.files[id] = buf.Bytes()
	return &dbmongo.MediaFile{ID: id, Filename: filename, Size: n, MimeType: mimeType, UploadedBy: uploaderID}, nil
}

func (m *fakeMedia) DeleteFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[fileID]; !ok {
		return dbmongo.ErrNotFound
	}
	delete(m.files, fileID)
	m.deleted = append(m.deleted, fileID)
	return nil
}

type fakeFollowing map[string][]string

func (f fakeFollowing) ListFollowingIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	return f[userID], nil
}

type fakeUsers map[string]*dbmongo.User

func (f fakeUsers) GetUsersByIDs(ctx context.Context, ids []string) ([]*dbmongo.User, error) {
	out := []*dbmongo.User{}
	for _, id := range ids {
		if u, ok := f[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
