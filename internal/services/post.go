package services

import (
	"context"
	"errors"
	"strings"

	"github.com/blogsphere/apiserver/internal/store"
	"github.com/blogsphere/apiserver/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, filter store.PostFilter) ([]types.Post, int, error)
	Get(ctx context.Context, id int) (types.Post, error)
	FindByTitleAndContent(ctx context.Context, title, content string, excludeID int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// PostInput carries the writable fields of a post.
type PostInput struct {
	Title    string
	Content  string
	Category string
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo   PostRepository
	photos *PhotoService
	events *Events
}

func NewPostService(repo PostRepository, photos *PhotoService, events *Events) *PostService {
	return &PostService{repo: repo, photos: photos, events: events}
}

func (s *PostService) List(ctx context.Context, filter store.PostFilter) ([]types.Post, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.repo.List(ctx, filter)
}

func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new post by author unless an identical post already exists.
func (s *PostService) Create(ctx context.Context, author types.User, input PostInput) (types.Post, error) {
	if err := s.ensureUnique(ctx, input.Title, input.Content, 0); err != nil {
		return types.Post{}, err
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = types.DefaultCategory
	}

	created, err := s.repo.Create(ctx, types.Post{
		Title:    input.Title,
		Content:  input.Content,
		Category: category,
		AuthorID: author.ID,
	})
	if err != nil {
		return types.Post{}, duplicateOnConflict(err)
	}
	created.AuthorName = author.Name

	_ = s.events.Emit(ctx, types.Event{Type: types.EventPostCreated, PostID: created.ID, UserID: author.ID})
	return created, nil
}

// Update changes title, content and, when given, category of a post owned by actor.
func (s *PostService) Update(ctx context.Context, actor types.User, id int, input PostInput) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if !actor.CanModify(post.AuthorID) {
		return types.Post{}, ErrForbidden
	}
	if err := s.ensureUnique(ctx, input.Title, input.Content, id); err != nil {
		return types.Post{}, err
	}

	post.Title = input.Title
	post.Content = input.Content
	if category := strings.TrimSpace(input.Category); category != "" {
		post.Category = category
	}

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		return types.Post{}, duplicateOnConflict(err)
	}

	_ = s.events.Emit(ctx, types.Event{Type: types.EventPostUpdated, PostID: id, UserID: actor.ID})
	return updated, nil
}

// Delete removes a post owned by actor together with its comments and photo.
func (s *PostService) Delete(ctx context.Context, actor types.User, id int) error {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(post.AuthorID) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.photos.Release(ctx, post.PhotoKey)
	_ = s.events.Emit(ctx, types.Event{Type: types.EventPostDeleted, PostID: id, UserID: actor.ID})
	return nil
}

// ReplacePhoto uploads a photo for the post and releases the previous one.
func (s *PostService) ReplacePhoto(ctx context.Context, actor types.User, id int, filename string, data []byte) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if !actor.CanModify(post.AuthorID) {
		return types.Post{}, ErrForbidden
	}

	photo, err := s.photos.Upload(ctx, filename, data)
	if err != nil {
		return types.Post{}, err
	}

	previousKey := post.PhotoKey
	post.PhotoKey = photo.Key
	post.PhotoURL = photo.URL
	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		s.photos.Release(ctx, photo.Key)
		return types.Post{}, err
	}

	if previousKey != photo.Key {
		s.photos.Release(ctx, previousKey)
	}
	_ = s.events.Emit(ctx, types.Event{Type: types.EventPostUpdated, PostID: id, UserID: actor.ID})
	return updated, nil
}

// RemovePhoto detaches and releases the post photo.
func (s *PostService) RemovePhoto(ctx context.Context, actor types.User, id int) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if !actor.CanModify(post.AuthorID) {
		return types.Post{}, ErrForbidden
	}
	if post.PhotoKey == "" && post.PhotoURL == "" {
		return post, nil
	}

	previousKey := post.PhotoKey
	post.PhotoKey = ""
	post.PhotoURL = ""
	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		return types.Post{}, err
	}

	s.photos.Release(ctx, previousKey)
	_ = s.events.Emit(ctx, types.Event{Type: types.EventPostUpdated, PostID: id, UserID: actor.ID})
	return updated, nil
}

func (s *PostService) ensureUnique(ctx context.Context, title, content string, excludeID int) error {
	_, err := s.repo.FindByTitleAndContent(ctx, title, content, excludeID)
	switch {
	case err == nil:
		return ErrDuplicatePost
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

// duplicateOnConflict maps the title/content unique index violation, hit when
// a concurrent writer passes ensureUnique first, to ErrDuplicatePost.
func duplicateOnConflict(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return ErrDuplicatePost
	}
	return err
}
