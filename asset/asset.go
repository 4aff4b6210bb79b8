// Package asset stores immutable binary payloads with mutable metadata and
// derives in-memory renditions of stored images.
package asset

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/logging/logger"
)

// File is implemented by stored and temporary assets.
type File interface {
	ID() string
	Filename() string
	ContentType() string
	Meta() Meta
	Stream(ctx context.Context) (io.ReadCloser, error)
	Buffer(ctx context.Context) ([]byte, error)
	Download(ctx context.Context) (io.ReadCloser, error)
	Unlink(ctx context.Context) (string, error)
}

type record struct {
	ID         string    `bson:"_id"`
	BlobID     string    `bson:"blobId"`
	Meta       `bson:",inline"`
	UploadedAt time.Time `bson:"uploadDate"`
}

// Asset is a stored payload bound to its metadata.
type Asset struct {
	rec   record
	store *Store
}

// ID returns the asset id.
func (a *Asset) ID() string { return a.rec.ID }

// Filename returns the stored file name.
func (a *Asset) Filename() string { return a.rec.Filename }

// ContentType returns the stored content type.
func (a *Asset) ContentType() string { return a.rec.ContentType }

// Meta returns a copy of the metadata.
func (a *Asset) Meta() Meta { return a.rec.Meta.clone() }

// UploadedAt returns the upload time.
func (a *Asset) UploadedAt() time.Time { return a.rec.UploadedAt }

// Stream opens the payload. The caller closes it.
func (a *Asset) Stream(ctx context.Context) (io.ReadCloser, error) {
	return a.store.openPayload(ctx, a.rec.BlobID)
}

// Buffer reads the whole payload.
func (a *Asset) Buffer(ctx context.Context) ([]byte, error) {
	rc, err := a.Stream(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Download counts a download and opens the payload. Counter failures are
// logged and do not fail the download.
func (a *Asset) Download(ctx context.Context) (io.ReadCloser, error) {
	now := time.Now().UTC()
	coll := a.store.coll

	if a.rec.FirstDownload == nil {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": a.rec.ID, "firstDownload": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"firstDownload": now}}, false)
		if err != nil {
			logger.Warn(ctx, "failed to record first download", "asset_id", a.rec.ID, "error", err)
		} else {
			a.rec.FirstDownload = &now
		}
	}
	_, err := coll.UpdateOne(ctx, collection.ByID(a.rec.ID), bson.M{
		"$inc": bson.M{"downloadCount": 1},
		"$set": bson.M{"lastDownload": now},
	}, false)
	if err != nil {
		logger.Warn(ctx, "failed to count download", "asset_id", a.rec.ID, "error", err)
	} else {
		a.rec.DownloadCount++
		a.rec.LastDownload = &now
	}
	return a.Stream(ctx)
}

// Unlink deletes the payload and the metadata.
func (a *Asset) Unlink(ctx context.Context) (string, error) {
	return a.store.Unlink(ctx, a.rec.ID)
}

// MarshalJSON encodes the asset without its payload.
func (a *Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(view{
		ID:          a.rec.ID,
		Filename:    a.rec.Filename,
		ContentType: a.rec.ContentType,
		Metadata:    a.rec.Meta,
		UploadDate:  &a.rec.UploadedAt,
	})
}

type view struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"contentType"`
	Metadata    Meta       `json:"metadata"`
	UploadDate  *time.Time `json:"uploadDate,omitempty"`
	Temporary   bool       `json:"temporary,omitempty"`
}
