package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectPutter is the part of the S3 client the store uses
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps files in an S3 bucket
type S3Store struct {
	client    objectPutter
	bucket    string
	publicURL string
}

// NewS3Store loads AWS credentials from the default chain and creates an
// S3Store. publicURL overrides the virtual-hosted bucket URL, e.g. for a CDN.
func NewS3Store(ctx context.Context, bucket, region, publicURL string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return newS3Store(s3.NewFromConfig(cfg), bucket, publicURL), nil
}

func newS3Store(client objectPutter, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Save uploads the file and returns its public URL
func (s *S3Store) Save(ctx context.Context, folder string, upload Upload) (string, error) {
	key := objectName(folder, upload.Filename)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        upload.Body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return s.publicURL + "/" + key, nil
}
