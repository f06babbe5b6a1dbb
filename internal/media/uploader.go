package media

import (
	"context"
	"errors"
	"io"

	"github.com/cliptube/backend/internal/auth"
)

// ObjectStorage is the durable store behind media uploads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ErrStorageUnavailable indicates the uploader has no configured backend.
var ErrStorageUnavailable = errors.New("media storage unavailable")

// Uploader streams profile assets to object storage. It implements
// auth.MediaStore.
type Uploader struct {
	storage ObjectStorage
}

// NewUploader constructs an Uploader on top of the provided storage.
func NewUploader(storage ObjectStorage) *Uploader {
	return &Uploader{storage: storage}
}

// Upload stores the asset under the provided key and returns its location.
func (u *Uploader) Upload(ctx context.Context, key string, asset auth.Asset) (string, error) {
	if u == nil || u.storage == nil {
		return "", ErrStorageUnavailable
	}
	return u.storage.Save(ctx, key, asset.Body, asset.ContentType)
}

// Delete removes a previously uploaded asset.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if u == nil || u.storage == nil {
		return ErrStorageUnavailable
	}
	return u.storage.Delete(ctx, key)
}

var _ auth.MediaStore = (*Uploader)(nil)
