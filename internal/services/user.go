package services

import (
	"context"

	"github.com/blogsphere/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateBlogPhoto(ctx context.Context, id int, photo types.Photo) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	photos *PhotoService
}

func NewUserService(repo UserRepository, photos *PhotoService) *UserService {
	return &UserService{repo: repo, photos: photos}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.Role == "" {
		user.Role = types.RoleUser
	}
	return s.repo.Create(ctx, user)
}

// ReplaceBlogPhoto uploads a new blog photo for the user and releases the
// previous one. The upload is released again if the user cannot be updated.
func (s *UserService) ReplaceBlogPhoto(ctx context.Context, userID int, filename string, data []byte) (types.User, error) {
	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	photo, err := s.photos.Upload(ctx, filename, data)
	if err != nil {
		return types.User{}, err
	}

	updated, err := s.repo.UpdateBlogPhoto(ctx, userID, photo)
	if err != nil {
		s.photos.Release(ctx, photo.Key)
		return types.User{}, err
	}

	if current.BlogPhotoKey != "" && current.BlogPhotoKey != photo.Key {
		s.photos.Release(ctx, current.BlogPhotoKey)
	}
	return updated, nil
}
