package port

import (
	"context"
	"io"
)

// ObjectStore holds public user media such as avatars.
type ObjectStore interface {
	// Upload writes body under bucket/key and returns the stored key.
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)

	// PublicURL is the address clients fetch the object from.
	PublicURL(bucket, key string) string
}
