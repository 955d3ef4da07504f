package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/blogsphere/apiserver/internal/storage"
	"github.com/blogsphere/apiserver/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var imageExtensions = map[string]string{
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/bmp":                ".bmp",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
}

// PhotoService uploads images to the image host and releases ones that are
// no longer referenced.
type PhotoService struct {
	storage  *storage.Storage
	events   *Events
	folder   string
	maxBytes int64
	logger   *zap.Logger
}

// NewPhotoService constructs a PhotoService. A nil storage disables uploads.
func NewPhotoService(store *storage.Storage, events *Events, folder string, maxBytes int64, logger *zap.Logger) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotoService{
		storage:  store,
		events:   events,
		folder:   strings.Trim(folder, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Enabled reports whether an image host is configured.
func (s *PhotoService) Enabled() bool {
	return s != nil && s.storage != nil
}

// Upload validates the image and stores it under a fresh key in the configured folder.
func (s *PhotoService) Upload(ctx context.Context, filename string, data []byte) (types.Photo, error) {
	if !s.Enabled() {
		return types.Photo{}, ErrPhotosDisabled
	}
	if len(data) == 0 {
		return types.Photo{}, ErrEmptyPhoto
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return types.Photo{}, ErrPhotoTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return types.Photo{}, ErrUnsupportedPhoto
	}

	key := uuid.NewString() + ext
	if s.folder != "" {
		key = path.Join(s.folder, key)
	}

	obj, err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return types.Photo{}, fmt.Errorf("upload %s: %w", filename, err)
	}

	s.logger.Info("photo uploaded",
		zap.String("key", obj.Key),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)
	return types.Photo{Key: obj.Key, URL: obj.URL}, nil
}

// Release schedules removal of an image that is no longer referenced. With a
// broker configured the worker deletes it; otherwise it is deleted inline.
// Failures are logged only.
func (s *PhotoService) Release(ctx context.Context, key string) {
	if key == "" || !s.Enabled() {
		return
	}

	if s.events.Enabled() {
		if err := s.events.Emit(ctx, types.Event{Type: types.EventPhotoReleased, ObjectKey: key}); err == nil {
			return
		}
	}

	if err := s.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to delete released photo", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the image from the image host.
func (s *PhotoService) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return ErrPhotosDisabled
	}
	return s.storage.Delete(ctx, key)
}
