package storage

import "context"

// UploadOptions conveys upload destination metadata.
type UploadOptions struct {
	Bucket      string
	KeyPrefix   string
	ContentType string
}

// Service relays local media files to remote object storage. UploadFile
// removes the local file when the upload fails, so callers never need to
// clean up after a failed relay.
type Service interface {
	UploadFile(ctx context.Context, localPath string, opts UploadOptions) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}
