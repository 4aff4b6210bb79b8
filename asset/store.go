package asset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/stemyke/node-backend-sub000/concurrency"
	"github.com/stemyke/node-backend-sub000/data/blob"
	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/metrics"
	"github.com/stemyke/node-backend-sub000/nanoid"
)

// Store persists asset metadata in a collection and payloads in a bucket.
type Store struct {
	coll   collection.Collection
	bucket blob.Bucket
	images *concurrency.Manager
}

// Option configures a Store.
type Option func(*Store)

// WithImageLimiter bounds concurrent image decoding.
func WithImageLimiter(m *concurrency.Manager) Option {
	return func(s *Store) {
		s.images = m
	}
}

// NewStore creates a store.
func NewStore(coll collection.Collection, bucket blob.Bucket, opts ...Option) *Store {
	s := &Store{coll: coll, bucket: bucket}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write stores the payload read from r. Without a content type one is
// sniffed from the stream head; without a filename one is generated.
func (s *Store) Write(ctx context.Context, r io.Reader, contentType string, meta *Meta) (*Asset, error) {
	var ext string
	if contentType == "" {
		ct, sniffedExt, body, err := Sniff(r)
		if err != nil {
			return nil, err
		}
		contentType, ext, r = ct, sniffedExt, body
	} else {
		ext = extensionFor(contentType)
	}

	m := Meta{}
	if meta != nil {
		m = meta.clone()
	}
	if m.Filename == "" {
		m.Filename = nanoid.FileName(ext)
	} else if fe := trimDot(filepath.Ext(m.Filename)); fe != "" {
		ext = fe
	}
	m.Extension = ext
	m.ContentType = contentType
	m.DownloadCount = 0
	m.FirstDownload = nil
	m.LastDownload = nil

	blobID, n, err := blob.Upload(ctx, s.bucket, m.Filename, map[string]any{
		"filename":    m.Filename,
		"contentType": contentType,
		"extension":   ext,
	}, r)
	if err != nil {
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("upload asset"))
	}
	m.Length = n

	rec := record{
		ID:         collection.NewID(),
		BlobID:     blobID,
		Meta:       m,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.coll.InsertOne(ctx, rec); err != nil {
		s.removePayload(ctx, blobID)
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("save asset metadata"))
	}

	metrics.RecordAssetWritten(kindOf(contentType), n)
	logger.Info(ctx, "asset written", "asset_id", rec.ID, "content_type", contentType, "length", n)
	return &Asset{rec: rec, store: s}, nil
}

// WriteBuffer stores buf after format specific processing: images get their
// EXIF orientation applied and dimensions recorded, fonts get their names
// recorded. The processed bytes are what is stored.
func (s *Store) WriteBuffer(ctx context.Context, buf []byte, meta *Meta, contentType string) (*Asset, error) {
	if contentType == "" {
		ct, _, err := SniffBuffer(buf)
		if err != nil {
			return nil, err
		}
		contentType = ct
	}

	m := Meta{}
	if meta != nil {
		m = meta.clone()
	}
	switch {
	case kindOf(contentType) == "image":
		out, extra, err := s.processImage(ctx, buf, contentType)
		if err != nil {
			return nil, err
		}
		buf = out
		m.setExtra(extra)
	case isFont(contentType):
		m.setExtra(fontInfo(ctx, buf))
	}

	return s.Write(ctx, bytes.NewReader(buf), contentType, &m)
}

// Read loads an asset by id. A missing asset yields nil, nil.
func (s *Store) Read(ctx context.Context, id string) (*Asset, error) {
	if id == "" {
		return nil, nil
	}
	return s.Find(ctx, collection.ByID(id))
}

// Find loads the first asset matching filter, or nil, nil.
func (s *Store) Find(ctx context.Context, filter bson.M) (*Asset, error) {
	var rec record
	if err := s.coll.FindOne(ctx, filter, &rec); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return nil, nil
		}
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("load asset"))
	}
	return &Asset{rec: rec, store: s}, nil
}

// ReadImage renders a stored image with params into a temporary asset.
// A missing asset yields nil, nil.
func (s *Store) ReadImage(ctx context.Context, id string, params ImageParams) (*TempAsset, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	a, err := s.Read(ctx, id)
	if err != nil || a == nil {
		return nil, err
	}
	buf, err := a.Buffer(ctx)
	if err != nil {
		return nil, err
	}
	crop := params.Crop
	if crop == nil {
		crop = a.rec.Crop
	}
	out, extra, err := s.render(ctx, buf, a.ContentType(), crop, params)
	if err != nil {
		return nil, err
	}
	m := a.Meta()
	m.Crop = crop
	m.setExtra(extra)
	return NewTempAsset(a.ID(), m, out), nil
}

// Unlink deletes the payload, then the metadata, and returns id. A payload
// that is already gone is not an error; other payload failures are logged.
func (s *Store) Unlink(ctx context.Context, id string) (string, error) {
	a, err := s.Read(ctx, id)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", ecode.New(ecode.NotFound, ecode.NotExist("asset "+id))
	}
	s.removePayload(ctx, a.rec.BlobID)
	if _, err := s.coll.DeleteOne(ctx, collection.ByID(id)); err != nil {
		return "", ecode.Wrap(ecode.ServerErr, err, ecode.Failed("delete asset metadata"))
	}
	logger.Info(ctx, "asset unlinked", "asset_id", id)
	return id, nil
}

func (s *Store) openPayload(ctx context.Context, blobID string) (io.ReadCloser, error) {
	rc, err := s.bucket.OpenDownloadStream(ctx, blobID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ecode.Wrap(ecode.NotFound, err, ecode.NotExist("asset payload"))
		}
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("open asset payload"))
	}
	return rc, nil
}

func (s *Store) removePayload(ctx context.Context, blobID string) {
	err := s.bucket.Delete(ctx, blobID)
	switch {
	case err == nil:
	case errors.Is(err, blob.ErrNotFound):
		logger.Debug(ctx, "asset payload already gone", "blob_id", blobID)
	default:
		logger.Error(ctx, "failed to delete asset payload", "blob_id", blobID, "error", err)
	}
}
