package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/blogsphere/apiserver/config"
	"github.com/blogsphere/apiserver/internal/services"
	"github.com/blogsphere/apiserver/internal/storage"
	"github.com/blogsphere/apiserver/internal/store"
	"github.com/blogsphere/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memUsers struct {
	mu     sync.Mutex
	users  map[int]types.User
	nextID int
}

func (m *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *memUsers) UpdateBlogPhoto(_ context.Context, id int, photo types.Photo) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.BlogPhoto = photo.URL
	u.BlogPhotoKey = photo.Key
	m.users[id] = u
	return u, nil
}

type memPosts struct {
	mu     sync.Mutex
	posts  map[int]types.Post
	nextID int
}

func (m *memPosts) List(_ context.Context, filter store.PostFilter) ([]types.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Post, 0)
	for _, p := range m.posts {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.AuthorID > 0 && p.AuthorID != filter.AuthorID {
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

func (m *memPosts) Get(_ context.Context, id int) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memPosts) FindByTitleAndContent(_ context.Context, title, content string, excludeID int) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ID != excludeID && p.Title == title && p.Content == content {
			return p, nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func (m *memPosts) Create(_ context.Context, post types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	post.ID = m.nextID
	m.posts[post.ID] = post
	return post, nil
}

func (m *memPosts) Update(_ context.Context, post types.Post) (types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[post.ID]; !ok {
		return types.Post{}, store.ErrNotFound
	}
	m.posts[post.ID] = post
	return post, nil
}

func (m *memPosts) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

type memComments struct {
	mu       sync.Mutex
	comments map[int]types.Comment
	nextID   int
}

func (m *memComments) ListByPost(_ context.Context, postID int) ([]types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Comment, 0)
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memComments) Get(_ context.Context, id int) (types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memComments) Create(_ context.Context, comment types.Comment) (types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	comment.ID = m.nextID
	m.comments[comment.ID] = comment
	return comment, nil
}

func (m *memComments) Update(_ context.Context, comment types.Comment) (types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[comment.ID]; !ok {
		return types.Comment{}, store.ErrNotFound
	}
	m.comments[comment.ID] = comment
	return comment, nil
}

func (m *memComments) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) EnsureBucket(context.Context) error { return nil }

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return storage.Object{Key: key, URL: "https://img.test/" + key}, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Bucket() string { return "test" }

type testEnv struct {
	router   *chi.Mux
	users    *memUsers
	posts    *memPosts
	comments *memComments
	objects  *memObjects
}

func newTestEnv(t *testing.T, photosEnabled bool) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    &memUsers{users: make(map[int]types.User)},
		posts:    &memPosts{posts: make(map[int]types.Post)},
		comments: &memComments{comments: make(map[int]types.Comment)},
		objects:  &memObjects{objects: make(map[string][]byte)},
	}

	var objectStore *storage.Storage
	if photosEnabled {
		objectStore = storage.NewStorage(env.objects)
	}
	events := services.NewEvents(nil, nil)
	photos := services.NewPhotoService(objectStore, events, "blog_images", 1<<20, nil)
	userService := services.NewUserService(env.users, photos)
	postService := services.NewPostService(env.posts, photos, events)
	commentService := services.NewCommentService(env.comments, env.posts, events, nil)

	authCfg := config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}
	auth := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Get("/", Root)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) { AuthRouter(r, userService, authCfg) })
		r.Route("/posts", func(r chi.Router) { PostRouter(r, postService, userService, 1<<20, auth) })
		r.Route("/comments", func(r chi.Router) { CommentRouter(r, commentService, userService, auth) })
		r.Route("/upload", func(r chi.Router) { UploadRouter(r, userService, 1<<20, auth) })
	})
	env.router = router
	return env
}

// addUser stores a user and returns a bearer token for it.
func (e *testEnv) addUser(t *testing.T, name, email, role string) (types.User, string) {
	t.Helper()
	user, err := e.users.Create(context.Background(), types.User{Name: name, Email: email, Role: role})
	require.NoError(t, err)
	token, err := issueToken(user, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, token, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		part, err := writer.CreateFormFile(field, "photo.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
