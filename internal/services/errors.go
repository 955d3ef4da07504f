package services

import "errors"

var (
	// ErrForbidden is returned when the actor does not own the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicatePost is returned when a post with the same title and content exists.
	ErrDuplicatePost = errors.New("blog post already exists")

	// ErrPhotosDisabled is returned when no image host is configured.
	ErrPhotosDisabled = errors.New("photo uploads are disabled")

	// ErrEmptyPhoto is returned for a zero-length upload.
	ErrEmptyPhoto = errors.New("photo is empty")

	// ErrPhotoTooLarge is returned when an upload exceeds the configured limit.
	ErrPhotoTooLarge = errors.New("photo is too large")

	// ErrUnsupportedPhoto is returned when the upload is not an image.
	ErrUnsupportedPhoto = errors.New("photo must be an image")
)
