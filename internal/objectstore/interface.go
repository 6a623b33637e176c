package objectstore

import "context"

// Uploader stores catch photos and returns their public URL.
type Uploader interface {
	UploadFile(ctx context.Context, path string, data []byte) (string, error)
	DeleteFile(ctx context.Context, path string) error
}
