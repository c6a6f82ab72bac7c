package s3

import "context"

// Storage is the subset of an S3-compatible bucket the photo archive needs.
type Storage interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}
