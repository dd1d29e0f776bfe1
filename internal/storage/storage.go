// Package storage keeps uploaded images and documents and hands back the URL
// they are served from.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrStorageDisabled = errors.New("file storage is not configured")
	ErrFileNotFound    = errors.New("file not found")
)

// Upload is a file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore persists uploads. Folder groups related files ("umkm",
// "products", "verification").
type ImageStore interface {
	Save(ctx context.Context, folder string, upload Upload) (string, error)
}

// objectName builds a collision-free name that keeps the upload's extension
func objectName(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(folder, uuid.NewString()+ext)
}

type disabledStore struct{}

// NewDisabledStore returns a store that rejects every upload
func NewDisabledStore() ImageStore {
	return disabledStore{}
}

func (disabledStore) Save(ctx context.Context, folder string, upload Upload) (string, error) {
	return "", ErrStorageDisabled
}
