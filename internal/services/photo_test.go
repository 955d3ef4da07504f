package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/blogsphere/apiserver/internal/storage"
	"github.com/blogsphere/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPhotos(objects *fakeObjects, events *Events) *PhotoService {
	return NewPhotoService(storage.NewStorage(objects), events, "/blog_images/", 1<<10, nil)
}

func TestPhotoServiceUpload(t *testing.T) {
	objects := newFakeObjects()
	photos := newTestPhotos(objects, nil)

	photo, err := photos.Upload(context.Background(), "me.png", pngHeader)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(photo.Key, "blog_images/"))
	assert.True(t, strings.HasSuffix(photo.Key, ".png"))
	assert.Equal(t, "https://img.test/"+photo.Key, photo.URL)
	assert.Equal(t, pngHeader, objects.objects[photo.Key])
}

func TestPhotoServiceUploadRejects(t *testing.T) {
	photos := newTestPhotos(newFakeObjects(), nil)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrEmptyPhoto},
		{name: "too large", data: append(append([]byte{}, pngHeader...), make([]byte, 1<<10)...), want: ErrPhotoTooLarge},
		{name: "not an image", data: []byte("plain text, definitely not a picture"), want: ErrUnsupportedPhoto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := photos.Upload(context.Background(), "file", tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPhotoServiceDisabled(t *testing.T) {
	photos := NewPhotoService(nil, nil, "", 0, nil)

	assert.False(t, photos.Enabled())
	_, err := photos.Upload(context.Background(), "a.png", pngHeader)
	assert.ErrorIs(t, err, ErrPhotosDisabled)
	assert.ErrorIs(t, photos.Delete(context.Background(), "k"), ErrPhotosDisabled)

	// Release is a no-op without a host.
	photos.Release(context.Background(), "k")
}

func TestPhotoServiceUploadStorageError(t *testing.T) {
	objects := newFakeObjects()
	objects.putErr = errors.New("host down")
	photos := newTestPhotos(objects, nil)

	_, err := photos.Upload(context.Background(), "a.png", pngHeader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host down")
}

func TestPhotoServiceReleaseInline(t *testing.T) {
	objects := newFakeObjects()
	photos := newTestPhotos(objects, NewEvents(nil, nil))

	photos.Release(context.Background(), "blog_images/a.png")
	photos.Release(context.Background(), "")

	assert.Equal(t, []string{"blog_images/a.png"}, objects.deleted)
}

func TestPhotoServiceReleaseViaEvents(t *testing.T) {
	objects := newFakeObjects()
	publisher := &fakePublisher{}
	photos := newTestPhotos(objects, NewEvents(publisher, nil))

	photos.Release(context.Background(), "blog_images/a.png")

	assert.Empty(t, objects.deleted)
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, types.ChannelPhotos, publisher.messages[0].channel)

	var event types.Event
	require.NoError(t, json.Unmarshal(publisher.messages[0].data, &event))
	assert.Equal(t, types.EventPhotoReleased, event.Type)
	assert.Equal(t, "blog_images/a.png", event.ObjectKey)
}

func TestPhotoServiceReleaseFallsBackWhenPublishFails(t *testing.T) {
	objects := newFakeObjects()
	publisher := &fakePublisher{err: errors.New("broker down")}
	photos := newTestPhotos(objects, NewEvents(publisher, nil))

	photos.Release(context.Background(), "blog_images/a.png")

	assert.Equal(t, []string{"blog_images/a.png"}, objects.deleted)
}
