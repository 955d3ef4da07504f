package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/blogsphere/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage        = 1
	defaultLimit       = 20
	maxLimit           = 100
	maxMultipartMemory = 8 << 20
	formFieldPhoto     = "blogPhoto"
)

var errMissingFile = errors.New("file not found")

type contextKey string

const contextSubjectKey contextKey = "sub"

func userIDFromContext(ctx context.Context) (int, error) {
	value := ctx.Value(contextSubjectKey)
	switch subject := value.(type) {
	case int:
		if subject < 1 {
			return 0, errors.New("invalid subject")
		}
		return subject, nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(subject))
		if err != nil || parsed < 1 {
			return 0, errors.New("invalid subject")
		}
		return parsed, nil
	default:
		return 0, errors.New("missing subject")
	}
}

// ErrorResponse is the error payload returned by every endpoint.
type ErrorResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Envelope wraps single-entity responses.
type Envelope struct {
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
}

// MessageResponse carries only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

func writeValidationError(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Errors: errs})
}

func writeCreated(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, Envelope{
		Status:     "Success",
		Message:    message,
		StatusCode: http.StatusCreated,
		Data:       data,
	})
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Message: "Success", StatusCode: http.StatusOK, Data: data})
}

// WriteError writes a JSON error body. It is used by the router for
// unmatched routes and methods.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// parsePhotoForm reads the blogPhoto file from a multipart request.
func parsePhotoForm(r *http.Request, limit int64) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return "", nil, errMissingFile
		}
		return "", nil, err
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldPhoto)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, errMissingFile
		}
		return "", nil, err
	}
	defer file.Close()

	data, err := readFileLimited(file, limit)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(reader)
	}
	data, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, services.ErrPhotoTooLarge
	}
	return data, nil
}

// writePhotoError maps upload failures to responses.
func writePhotoError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, errMissingFile), errors.Is(err, services.ErrEmptyPhoto):
		writeError(w, http.StatusBadRequest, "File not found")
	case errors.Is(err, services.ErrUnsupportedPhoto):
		writeError(w, http.StatusBadRequest, "Only image files are allowed")
	case errors.Is(err, services.ErrPhotoTooLarge), errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, "Photo is too large")
	case errors.Is(err, services.ErrPhotosDisabled):
		writeError(w, http.StatusServiceUnavailable, "Photo uploads are disabled")
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: "Error uploading blog photo",
			Error:   err.Error(),
		})
	}
}
