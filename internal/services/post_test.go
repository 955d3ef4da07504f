package services

import (
	"context"
	"errors"
	"testing"

	"github.com/blogsphere/apiserver/internal/storage"
	"github.com/blogsphere/apiserver/internal/store"
	"github.com/blogsphere/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = types.User{ID: 1, Name: "Alice", Email: "alice@example.com", Role: types.RoleUser}
	bob   = types.User{ID: 2, Name: "Bob", Email: "bob@example.com", Role: types.RoleUser}
	admin = types.User{ID: 3, Name: "Root", Email: "root@example.com", Role: types.RoleAdmin}
)

type postFixture struct {
	repo      *fakePostRepo
	objects   *fakeObjects
	publisher *fakePublisher
	service   *PostService
}

func newPostFixture(posts ...types.Post) postFixture {
	repo := newFakePostRepo(posts...)
	objects := newFakeObjects()
	publisher := &fakePublisher{}
	events := NewEvents(publisher, nil)
	photos := NewPhotoService(storage.NewStorage(objects), NewEvents(nil, nil), "blog_images", 1<<20, nil)
	return postFixture{
		repo:      repo,
		objects:   objects,
		publisher: publisher,
		service:   NewPostService(repo, photos, events),
	}
}

func TestPostServiceCreate(t *testing.T) {
	f := newPostFixture()

	post, err := f.service.Create(context.Background(), alice, PostInput{Title: "Hello", Content: "World"})
	require.NoError(t, err)

	assert.Equal(t, 1, post.ID)
	assert.Equal(t, types.DefaultCategory, post.Category)
	assert.Equal(t, alice.ID, post.AuthorID)
	assert.Equal(t, alice.Name, post.AuthorName)
	assert.Equal(t, []string{string(types.EventPostCreated)}, f.publisher.eventTypes())
}

func TestPostServiceCreateDuplicate(t *testing.T) {
	f := newPostFixture(types.Post{ID: 1, Title: "Hello", Content: "World", AuthorID: bob.ID})

	_, err := f.service.Create(context.Background(), alice, PostInput{Title: "Hello", Content: "World", Category: "tech"})
	assert.ErrorIs(t, err, ErrDuplicatePost)
	assert.Len(t, f.repo.posts, 1)

	_, err = f.service.Create(context.Background(), alice, PostInput{Title: "Hello", Content: "Other"})
	assert.NoError(t, err)
}

func TestPostServiceUniqueIndexConflict(t *testing.T) {
	f := newPostFixture(types.Post{ID: 1, Title: "Hello", Content: "World", AuthorID: alice.ID})
	f.repo.createErr = store.ErrConflict
	f.repo.updateErr = store.ErrConflict

	_, err := f.service.Create(context.Background(), alice, PostInput{Title: "Racing", Content: "Writer"})
	assert.ErrorIs(t, err, ErrDuplicatePost)

	_, err = f.service.Update(context.Background(), alice, 1, PostInput{Title: "Racing", Content: "Writer"})
	assert.ErrorIs(t, err, ErrDuplicatePost)
	assert.Empty(t, f.publisher.eventTypes())
}

func TestPostServiceListClampsLimit(t *testing.T) {
	f := newPostFixture()

	_, _, err := f.service.List(context.Background(), store.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, defaultListLimit, f.repo.lastList.Limit)

	_, _, err = f.service.List(context.Background(), store.PostFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, f.repo.lastList.Limit)
}

func TestPostServiceUpdate(t *testing.T) {
	existing := types.Post{ID: 1, Title: "Old", Content: "Body", Category: "tech", AuthorID: alice.ID}

	tests := []struct {
		name    string
		actor   types.User
		input   PostInput
		posts   []types.Post
		id      int
		wantErr error
		want    types.Post
	}{
		{
			name:  "owner keeps category when empty",
			actor: alice,
			input: PostInput{Title: "New", Content: "Body"},
			posts: []types.Post{existing},
			id:    1,
			want:  types.Post{ID: 1, Title: "New", Content: "Body", Category: "tech", AuthorID: alice.ID},
		},
		{
			name:  "admin may update",
			actor: admin,
			input: PostInput{Title: "New", Content: "Body", Category: "life"},
			posts: []types.Post{existing},
			id:    1,
			want:  types.Post{ID: 1, Title: "New", Content: "Body", Category: "life", AuthorID: alice.ID},
		},
		{
			name:  "unchanged post is not its own duplicate",
			actor: alice,
			input: PostInput{Title: "Old", Content: "Body"},
			posts: []types.Post{existing},
			id:    1,
			want:  existing,
		},
		{
			name:    "stranger is forbidden",
			actor:   bob,
			input:   PostInput{Title: "New", Content: "Body"},
			posts:   []types.Post{existing},
			id:      1,
			wantErr: ErrForbidden,
		},
		{
			name:    "duplicate of another post",
			actor:   alice,
			input:   PostInput{Title: "Taken", Content: "Same"},
			posts:   []types.Post{existing, {ID: 2, Title: "Taken", Content: "Same", AuthorID: bob.ID}},
			id:      1,
			wantErr: ErrDuplicatePost,
		},
		{
			name:    "missing post",
			actor:   alice,
			input:   PostInput{Title: "New", Content: "Body"},
			posts:   []types.Post{existing},
			id:      42,
			wantErr: store.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPostFixture(tt.posts...)
			got, err := f.service.Update(context.Background(), tt.actor, tt.id, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.publisher.messages)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{string(types.EventPostUpdated)}, f.publisher.eventTypes())
		})
	}
}

func TestPostServiceDelete(t *testing.T) {
	post := types.Post{ID: 1, Title: "T", Content: "C", AuthorID: alice.ID, PhotoKey: "blog_images/p.png"}

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newPostFixture(post)
		err := f.service.Delete(context.Background(), bob, 1)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Contains(t, f.repo.posts, 1)
	})

	t.Run("owner deletes and releases photo", func(t *testing.T) {
		f := newPostFixture(post)
		require.NoError(t, f.service.Delete(context.Background(), alice, 1))
		assert.NotContains(t, f.repo.posts, 1)
		assert.Equal(t, []string{"blog_images/p.png"}, f.objects.deleted)
		assert.Equal(t, []string{string(types.EventPostDeleted)}, f.publisher.eventTypes())
	})

	t.Run("missing post", func(t *testing.T) {
		f := newPostFixture()
		assert.ErrorIs(t, f.service.Delete(context.Background(), alice, 1), store.ErrNotFound)
	})
}

func TestPostServiceReplacePhoto(t *testing.T) {
	f := newPostFixture(types.Post{ID: 1, Title: "T", Content: "C", AuthorID: alice.ID, PhotoKey: "blog_images/old.png", PhotoURL: "https://img.test/blog_images/old.png"})

	updated, err := f.service.ReplacePhoto(context.Background(), alice, 1, "new.png", pngHeader)
	require.NoError(t, err)

	assert.NotEqual(t, "blog_images/old.png", updated.PhotoKey)
	assert.Equal(t, "https://img.test/"+updated.PhotoKey, updated.PhotoURL)
	assert.Contains(t, f.objects.objects, updated.PhotoKey)
	assert.Equal(t, []string{"blog_images/old.png"}, f.objects.deleted)
}

func TestPostServiceReplacePhotoReleasesUploadOnFailure(t *testing.T) {
	f := newPostFixture(types.Post{ID: 1, Title: "T", Content: "C", AuthorID: alice.ID})
	f.repo.updateErr = errors.New("db down")

	_, err := f.service.ReplacePhoto(context.Background(), alice, 1, "new.png", pngHeader)
	require.Error(t, err)

	assert.Empty(t, f.objects.objects)
	assert.Len(t, f.objects.deleted, 1)
}

func TestPostServiceReplacePhotoForbidden(t *testing.T) {
	f := newPostFixture(types.Post{ID: 1, Title: "T", Content: "C", AuthorID: alice.ID})

	_, err := f.service.ReplacePhoto(context.Background(), bob, 1, "new.png", pngHeader)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, f.objects.objects)
}

func TestPostServiceRemovePhoto(t *testing.T) {
	f := newPostFixture(types.Post{ID: 1, Title: "T", Content: "C", AuthorID: alice.ID, PhotoKey: "blog_images/old.png", PhotoURL: "u"})

	updated, err := f.service.RemovePhoto(context.Background(), admin, 1)
	require.NoError(t, err)

	assert.Empty(t, updated.PhotoKey)
	assert.Empty(t, updated.PhotoURL)
	assert.Equal(t, []string{"blog_images/old.png"}, f.objects.deleted)
}
