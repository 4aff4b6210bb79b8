package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/stemyke/node-backend-sub000/ecode"
)

// TempAsset is an in-memory rendition derived from a stored asset. It is
// never persisted and cannot be unlinked.
type TempAsset struct {
	id   string
	meta Meta
	data []byte
}

// NewTempAsset wraps data under the id of the asset it derives from.
func NewTempAsset(id string, meta Meta, data []byte) *TempAsset {
	meta.Length = int64(len(data))
	return &TempAsset{id: id, meta: meta, data: data}
}

// ID returns the id of the source asset.
func (t *TempAsset) ID() string { return t.id }

// Filename returns the file name.
func (t *TempAsset) Filename() string { return t.meta.Filename }

// ContentType returns the content type.
func (t *TempAsset) ContentType() string { return t.meta.ContentType }

// Meta returns a copy of the metadata.
func (t *TempAsset) Meta() Meta { return t.meta.clone() }

// Stream returns a reader over the data.
func (t *TempAsset) Stream(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(t.data)), nil
}

// Buffer returns the data.
func (t *TempAsset) Buffer(context.Context) ([]byte, error) {
	return t.data, nil
}

// Download is Stream; temporary renditions are not counted.
func (t *TempAsset) Download(ctx context.Context) (io.ReadCloser, error) {
	return t.Stream(ctx)
}

// Unlink always fails.
func (t *TempAsset) Unlink(context.Context) (string, error) {
	return "", ecode.New(ecode.UnlinkOfImmutableTempAsset, ecode.Text(ecode.UnlinkOfImmutableTempAsset))
}

// MarshalJSON encodes the rendition without its data.
func (t *TempAsset) MarshalJSON() ([]byte, error) {
	return json.Marshal(view{
		ID:          t.id,
		Filename:    t.meta.Filename,
		ContentType: t.meta.ContentType,
		Metadata:    t.meta,
		Temporary:   true,
	})
}
