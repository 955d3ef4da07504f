package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/blogsphere/apiserver/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const cloudinaryResourceType = "image"

// CloudinaryClient stores images on Cloudinary. Object keys map to public IDs
// with the file extension removed, so "blog_images/abc.png" lands in the
// blog_images folder as "abc".
type CloudinaryClient struct {
	cld       *cloudinary.Cloudinary
	cloudName string
}

// NewCloudinaryClient constructs a Cloudinary client from config.
func NewCloudinaryClient(cfg config.CloudinaryConfig) (*CloudinaryClient, error) {
	if strings.TrimSpace(cfg.CloudName) == "" {
		return nil, errors.New("cloudinary cloud name is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, errors.New("cloudinary api key and secret are required")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}

	return &CloudinaryClient{cld: cld, cloudName: cfg.CloudName}, nil
}

// EnsureBucket verifies the credentials against the admin API. Cloudinary
// folders are created implicitly on upload.
func (c *CloudinaryClient) EnsureBucket(ctx context.Context) error {
	if _, err := c.cld.Admin.Ping(ctx); err != nil {
		return fmt.Errorf("cloudinary ping: %w", err)
	}
	return nil
}

// Put uploads an image and returns its secure URL.
func (c *CloudinaryClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	result, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     cloudinaryPublicID(key),
		ResourceType: cloudinaryResourceType,
	})
	if err != nil {
		return Object{}, err
	}
	if result.Error.Message != "" {
		return Object{}, errors.New(result.Error.Message)
	}
	return Object{Key: result.PublicID, URL: result.SecureURL}, nil
}

// Delete destroys the image with the given key.
func (c *CloudinaryClient) Delete(ctx context.Context, key string) error {
	result, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     cloudinaryPublicID(key),
		ResourceType: cloudinaryResourceType,
	})
	if err != nil {
		return err
	}
	if result.Error.Message != "" {
		return errors.New(result.Error.Message)
	}
	return nil
}

// Bucket returns the cloud name.
func (c *CloudinaryClient) Bucket() string {
	return c.cloudName
}

func cloudinaryPublicID(key string) string {
	key = strings.Trim(key, "/")
	return strings.TrimSuffix(key, path.Ext(key))
}
