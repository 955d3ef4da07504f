package handlers

import (
	"errors"
	"net/http"

	"github.com/blogsphere/apiserver/internal/services"
	"github.com/blogsphere/apiserver/internal/store"
	"github.com/blogsphere/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UploadHandler manages the authenticated user's blog photo.
type UploadHandler struct {
	userService *services.UserService
	maxPhoto    int64
}

func NewUploadHandler(userService *services.UserService, maxPhoto int64) *UploadHandler {
	return &UploadHandler{userService: userService, maxPhoto: maxPhoto}
}

// UploadRouter registers upload routes on the given router.
func UploadRouter(
	r chi.Router,
	userService *services.UserService,
	maxPhoto int64,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUploadHandler(userService, maxPhoto)

	r.With(authMiddleware).Post("/blog-photo", handler.UploadBlogPhoto)
	r.With(authMiddleware).Get("/blog-photo", handler.GetBlogPhoto)
}

func (h *UploadHandler) UploadBlogPhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	filename, data, err := parsePhotoForm(r, h.maxPhoto)
	if err != nil {
		writePhotoError(w, err)
		return
	}

	user, err := h.userService.ReplaceBlogPhoto(r.Context(), userID, filename, data)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writePhotoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BlogPhotoUploadResponse{
		Message:   "Blog photo uploaded successfully",
		BlogPhoto: user.BlogPhoto,
		User:      user,
	})
}

func (h *UploadHandler) GetBlogPhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: "Error retrieving blog photo",
			Error:   err.Error(),
		})
		return
	}
	if user.BlogPhoto == "" {
		writeError(w, http.StatusNotFound, "Blog photo not found")
		return
	}

	writeJSON(w, http.StatusOK, BlogPhotoResponse{BlogPhoto: user.BlogPhoto})
}

type BlogPhotoUploadResponse struct {
	Message   string     `json:"message"`
	BlogPhoto string     `json:"blogPhoto"`
	User      types.User `json:"user"`
}

type BlogPhotoResponse struct {
	BlogPhoto string `json:"blogPhoto"`
}
