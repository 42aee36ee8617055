package policies

import (
	"context"
	"io"
)

// UploadsPort stores listing photos in object storage.
type UploadsPort interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (url string, err error)
	Delete(ctx context.Context, key string) error
}
