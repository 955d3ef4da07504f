package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/blogsphere/apiserver/internal/storage"
	"github.com/blogsphere/apiserver/internal/store"
	"github.com/blogsphere/apiserver/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) EnsureBucket(context.Context) error { return nil }

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (storage.Object, error) {
	if f.putErr != nil {
		return storage.Object{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return storage.Object{Key: key, URL: "https://img.test/" + key}, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) Bucket() string { return "test" }

type publishedMessage struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMessage{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.attrs["type"])
	}
	return out
}

type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo(users ...types.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]types.User), nextID: 1}
	for _, u := range users {
		repo.users[u.ID] = u
		if u.ID >= repo.nextID {
			repo.nextID = u.ID + 1
		}
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateBlogPhoto(_ context.Context, id int, photo types.Photo) (types.User, error) {
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.BlogPhoto = photo.URL
	u.BlogPhotoKey = photo.Key
	r.users[id] = u
	return u, nil
}

type fakePostRepo struct {
	posts     map[int]types.Post
	nextID    int
	createErr error
	updateErr error
	lastList  store.PostFilter
}

func newFakePostRepo(posts ...types.Post) *fakePostRepo {
	repo := &fakePostRepo{posts: make(map[int]types.Post), nextID: 1}
	for _, p := range posts {
		repo.posts[p.ID] = p
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
	}
	return repo
}

func (r *fakePostRepo) List(_ context.Context, filter store.PostFilter) ([]types.Post, int, error) {
	r.lastList = filter
	out := make([]types.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.AuthorID > 0 && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if filter.Offset >= len(out) {
		return []types.Post{}, total, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *fakePostRepo) Get(_ context.Context, id int) (types.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return p, nil
}

func (r *fakePostRepo) FindByTitleAndContent(_ context.Context, title, content string, excludeID int) (types.Post, error) {
	for _, p := range r.posts {
		if p.ID == excludeID {
			continue
		}
		if p.Title == title && p.Content == content {
			return p, nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func (r *fakePostRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	if r.createErr != nil {
		return types.Post{}, r.createErr
	}
	post.ID = r.nextID
	r.nextID++
	r.posts[post.ID] = post
	return post, nil
}

func (r *fakePostRepo) Update(_ context.Context, post types.Post) (types.Post, error) {
	if r.updateErr != nil {
		return types.Post{}, r.updateErr
	}
	if _, ok := r.posts[post.ID]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	r.posts[post.ID] = post
	return post, nil
}

func (r *fakePostRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

type fakeCommentRepo struct {
	comments map[int]types.Comment
	nextID   int
}

func newFakeCommentRepo(comments ...types.Comment) *fakeCommentRepo {
	repo := &fakeCommentRepo{comments: make(map[int]types.Comment), nextID: 1}
	for _, c := range comments {
		repo.comments[c.ID] = c
		if c.ID >= repo.nextID {
			repo.nextID = c.ID + 1
		}
	}
	return repo
}

func (r *fakeCommentRepo) ListByPost(_ context.Context, postID int) ([]types.Comment, error) {
	out := make([]types.Comment, 0)
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCommentRepo) Get(_ context.Context, id int) (types.Comment, error) {
	c, ok := r.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return c, nil
}

func (r *fakeCommentRepo) Create(_ context.Context, comment types.Comment) (types.Comment, error) {
	comment.ID = r.nextID
	r.nextID++
	r.comments[comment.ID] = comment
	return comment, nil
}

func (r *fakeCommentRepo) Update(_ context.Context, comment types.Comment) (types.Comment, error) {
	if _, ok := r.comments[comment.ID]; !ok {
		return types.Comment{}, store.ErrNotFound
	}
	r.comments[comment.ID] = comment
	return comment, nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}
