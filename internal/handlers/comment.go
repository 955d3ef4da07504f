package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/blogsphere/apiserver/internal/services"
	"github.com/blogsphere/apiserver/internal/store"
	"github.com/blogsphere/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// CommentHandler provides HTTP handlers for post comments.
type CommentHandler struct {
	commentService *services.CommentService
	userService    *services.UserService
}

func NewCommentHandler(commentService *services.CommentService, userService *services.UserService) *CommentHandler {
	return &CommentHandler{commentService: commentService, userService: userService}
}

// CommentRouter registers comment routes. POST and GET address a post id,
// PUT and DELETE a comment id.
func CommentRouter(
	r chi.Router,
	commentService *services.CommentService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCommentHandler(commentService, userService)

	r.Get("/{id}", handler.ListComments)
	r.With(authMiddleware).Post("/{id}", handler.CreateComment)
	r.With(authMiddleware).Put("/{id}", handler.UpdateComment)
	r.With(authMiddleware).Delete("/{id}", handler.DeleteComment)
}

func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.commentService.ListByPost(r.Context(), postID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list comments")
		return
	}

	writeJSON(w, http.StatusOK, CommentListResponse{
		StatusCode: http.StatusOK,
		Message:    "Success",
		Count:      len(comments),
		Data:       comments,
	})
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content, ok := decodeCommentContent(w, r)
	if !ok {
		return
	}
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	comment, err := h.commentService.Create(r.Context(), user, postID, content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to add comment")
		return
	}
	writeCreated(w, "Comment added successfully", comment)
}

func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content, ok := decodeCommentContent(w, r)
	if !ok {
		return
	}
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	comment, err := h.commentService.Update(r.Context(), user, id, content)
	if err != nil {
		writeCommentError(w, err, "update", "Failed to update comment")
		return
	}
	writeOK(w, comment)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	if err := h.commentService.Delete(r.Context(), user, id); err != nil {
		writeCommentError(w, err, "delete", "Failed to delete comment")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Comment removed"})
}

type CommentRequest struct {
	Content string `json:"content"`
}

type CommentListResponse struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Count      int             `json:"count"`
	Data       []types.Comment `json:"data"`
}

func decodeCommentContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return "", false
	}
	return content, true
}

func writeCommentError(w http.ResponseWriter, err error, action, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Comment not found")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "User not authorized to "+action+" this comment")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
