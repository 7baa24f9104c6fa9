// Package media is the client for the external media host that stores
// movie posters.  The host is an S3-compatible bucket; posters are
// compressed before upload and served from a public base URL.
package media

import (
	"context"
	"errors"
)

// ErrInvalidImage is returned when an upload payload cannot be decoded as
// an image.
var ErrInvalidImage = errors.New("media: payload is not a decodable image")

// Upload is a poster submitted by a client.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// UploadResult identifies a stored object: its public URL and the host's
// object identifier used to destroy it later.
type UploadResult struct {
	URL string
	ID  string
}

// Host is the narrow contract the catalog depends on.  Destroy of an
// unknown id succeeds.
type Host interface {
	Upload(ctx context.Context, u Upload) (UploadResult, error)
	Destroy(ctx context.Context, id string) error
}
