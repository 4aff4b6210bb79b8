// Package blob stores immutable binary payloads addressed by an opaque id.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no payload exists for an id.
var ErrNotFound = errors.New("blob not found")

// Bucket is a binary object store.
type Bucket interface {
	// OpenUploadStream allocates an id for a new payload. The payload is
	// durable once the returned writer has been closed without error.
	OpenUploadStream(ctx context.Context, filename string, meta map[string]any) (string, io.WriteCloser, error)
	// OpenDownloadStream opens the payload for reading.
	OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error)
	// Delete removes the payload, returning ErrNotFound when it is absent.
	Delete(ctx context.Context, id string) error
}

// Upload copies r into a new payload and returns its id.
func Upload(ctx context.Context, b Bucket, filename string, meta map[string]any, r io.Reader) (string, int64, error) {
	id, w, err := b.OpenUploadStream(ctx, filename, meta)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(w, r)
	if err != nil {
		if a, ok := w.(interface{ Abort() error }); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return "", n, err
	}
	if err := w.Close(); err != nil {
		return "", n, err
	}
	return id, n, nil
}
