package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultContentType = "application/octet-stream"

// GridFSStore keeps files in MongoDB GridFS and serves them under publicURL
type GridFSStore struct {
	db        *mongo.Database
	publicURL string
}

// NewGridFSStore creates a GridFSStore. publicURL is the route prefix files
// are served from, e.g. "/files".
func NewGridFSStore(db *mongo.Database, publicURL string) *GridFSStore {
	return &GridFSStore{db: db, publicURL: strings.TrimRight(publicURL, "/")}
}

// bucket opens a bucket bound to the deadline of ctx
func (s *GridFSStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

// Save stores the upload and returns the URL it is served from
func (s *GridFSStore) Save(ctx context.Context, folder string, upload Upload) (string, error) {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return "", err
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{
		"content_type":  contentType,
		"original_name": upload.Filename,
	})

	id, err := bucket.UploadFromStream(objectName(folder, upload.Filename), upload.Body, opts)
	if err != nil {
		return "", fmt.Errorf("failed to upload to gridfs: %w", err)
	}

	return s.publicURL + "/" + id.Hex(), nil
}

// Open streams a stored file back with its content type
func (s *GridFSStore) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", ErrFileNotFound
	}

	bucket, err := s.bucket(ctx)
	if err != nil {
		return nil, "", err
	}

	stream, err := bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrFileNotFound
		}
		return nil, "", fmt.Errorf("failed to open gridfs file: %w", err)
	}

	contentType := defaultContentType
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}

	return stream, contentType, nil
}
