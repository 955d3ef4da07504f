package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/blogsphere/apiserver/internal/services"
	"github.com/blogsphere/apiserver/internal/store"
	"github.com/blogsphere/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// PostHandler provides HTTP handlers for blog posts.
type PostHandler struct {
	postService *services.PostService
	userService *services.UserService
	maxPhoto    int64
}

// NewPostHandler constructs a handler with the provided services.
func NewPostHandler(postService *services.PostService, userService *services.UserService, maxPhoto int64) *PostHandler {
	return &PostHandler{
		postService: postService,
		userService: userService,
		maxPhoto:    maxPhoto,
	}
}

// PostRouter registers post routes on the given router.
func PostRouter(
	r chi.Router,
	postService *services.PostService,
	userService *services.UserService,
	maxPhoto int64,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPostHandler(postService, userService, maxPhoto)

	r.Get("/all-posts", handler.ListPosts)
	r.Get("/{id}", handler.GetPost)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/blog-post", handler.CreatePost)
		r.Put("/update/{id}", handler.UpdatePost)
		r.Delete("/delete/{id}", handler.DeletePost)
		r.Post("/{id}/photo", handler.UploadPhoto)
		r.Delete("/{id}/photo", handler.RemovePhoto)
	})
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.PostFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Search:   strings.TrimSpace(r.URL.Query().Get("q")),
		Offset:   offset,
		Limit:    limit,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("author")); raw != "" {
		authorID, err := strconv.Atoi(raw)
		if err != nil || authorID < 1 {
			writeError(w, http.StatusBadRequest, "invalid author")
			return
		}
		filter.AuthorID = authorID
	}

	posts, total, err := h.postService.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Message:    "Success",
		StatusCode: http.StatusOK,
		Data:       posts,
		Page:       page,
		Limit:      limit,
		Total:      total,
	})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		writePostError(w, err, "Failed to fetch post")
		return
	}
	writeOK(w, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	req, ok := decodePostRequest(w, r)
	if !ok {
		return
	}

	post, err := h.postService.Create(r.Context(), user, req.input())
	if err != nil {
		writePostError(w, err, "Failed to create post")
		return
	}
	writeCreated(w, "Blog posted successfully", post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	req, ok := decodePostRequest(w, r)
	if !ok {
		return
	}

	post, err := h.postService.Update(r.Context(), user, id, req.input())
	if err != nil {
		writePostError(w, err, "Failed to update post")
		return
	}
	writeOK(w, post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), user, id); err != nil {
		writePostError(w, err, "Failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Post removed"})
}

func (h *PostHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	filename, data, err := parsePhotoForm(r, h.maxPhoto)
	if err != nil {
		writePhotoError(w, err)
		return
	}

	post, err := h.postService.ReplacePhoto(r.Context(), user, id, filename, data)
	if err != nil {
		if isPostError(err) {
			writePostError(w, err, "")
			return
		}
		writePhotoError(w, err)
		return
	}
	writeOK(w, post)
}

func (h *PostHandler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, ok := currentUser(w, r, h.userService)
	if !ok {
		return
	}

	post, err := h.postService.RemovePhoto(r.Context(), user, id)
	if err != nil {
		writePostError(w, err, "Failed to remove photo")
		return
	}
	writeOK(w, post)
}

type PostUpsertRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (req PostUpsertRequest) validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "Title is required"})
	}
	if strings.TrimSpace(req.Content) == "" {
		errs = append(errs, FieldError{Field: "content", Message: "Content is required"})
	}
	return errs
}

func (req PostUpsertRequest) input() services.PostInput {
	return services.PostInput{
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Category: strings.TrimSpace(req.Category),
	}
}

type PostListResponse struct {
	Message    string       `json:"message"`
	StatusCode int          `json:"statusCode"`
	Data       []types.Post `json:"data"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int          `json:"total"`
}

func decodePostRequest(w http.ResponseWriter, r *http.Request) (PostUpsertRequest, bool) {
	var req PostUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationError(w, errs)
		return req, false
	}
	return req, true
}

func isPostError(err error) bool {
	return errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, services.ErrForbidden) ||
		errors.Is(err, services.ErrDuplicatePost)
}

func writePostError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "User not authorized to modify this post")
	case errors.Is(err, services.ErrDuplicatePost):
		writeError(w, http.StatusBadRequest, "Blog post already exists")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
