package services

import (
	"context"

	"github.com/blogsphere/apiserver/types"
	"go.uber.org/zap"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	ListByPost(ctx context.Context, postID int) ([]types.Comment, error)
	Get(ctx context.Context, id int) (types.Comment, error)
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	Update(ctx context.Context, comment types.Comment) (types.Comment, error)
	Delete(ctx context.Context, id int) error
}

// PostGetter looks up posts by id.
type PostGetter interface {
	Get(ctx context.Context, id int) (types.Post, error)
}

// CommentService encapsulates comment use-cases.
type CommentService struct {
	repo   CommentRepository
	posts  PostGetter
	events *Events
	logger *zap.Logger
}

func NewCommentService(repo CommentRepository, posts PostGetter, events *Events, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, posts: posts, events: events, logger: logger}
}

// ListByPost returns the comments of a post, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID int) ([]types.Comment, error) {
	comments, err := s.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("retrieved comments", zap.Int("post_id", postID), zap.Int("count", len(comments)))
	return comments, nil
}

// Create adds a comment by author to an existing post.
func (s *CommentService) Create(ctx context.Context, author types.User, postID int, content string) (types.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return types.Comment{}, err
	}

	created, err := s.repo.Create(ctx, types.Comment{
		Content:  content,
		PostID:   postID,
		AuthorID: author.ID,
	})
	if err != nil {
		return types.Comment{}, err
	}
	created.AuthorName = author.Name

	_ = s.events.Emit(ctx, types.Event{
		Type:      types.EventCommentCreated,
		PostID:    postID,
		CommentID: created.ID,
		UserID:    author.ID,
	})
	return created, nil
}

// Update replaces the content of a comment written by actor.
func (s *CommentService) Update(ctx context.Context, actor types.User, id int, content string) (types.Comment, error) {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Comment{}, err
	}
	if !actor.CanModify(comment.AuthorID) {
		return types.Comment{}, ErrForbidden
	}

	comment.Content = content
	updated, err := s.repo.Update(ctx, comment)
	if err != nil {
		return types.Comment{}, err
	}

	_ = s.events.Emit(ctx, types.Event{
		Type:      types.EventCommentUpdated,
		PostID:    comment.PostID,
		CommentID: id,
		UserID:    actor.ID,
	})
	return updated, nil
}

// Delete removes a comment written by actor.
func (s *CommentService) Delete(ctx context.Context, actor types.User, id int) error {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(comment.AuthorID) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.events.Emit(ctx, types.Event{
		Type:      types.EventCommentDeleted,
		PostID:    comment.PostID,
		CommentID: id,
		UserID:    actor.ID,
	})
	return nil
}
