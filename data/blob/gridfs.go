package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type gridFSBucket struct {
	bucket *gridfs.Bucket
}

// NewGridFS wraps a GridFS bucket. Ids are ObjectID hex strings.
func NewGridFS(bucket *gridfs.Bucket) Bucket {
	return &gridFSBucket{bucket: bucket}
}

func (g *gridFSBucket) OpenUploadStream(ctx context.Context, filename string, meta map[string]any) (string, io.WriteCloser, error) {
	opts := options.GridFSUpload()
	if len(meta) > 0 {
		opts.SetMetadata(meta)
	}
	us, err := g.bucket.OpenUploadStream(filename, opts)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open gridfs upload stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = us.SetWriteDeadline(deadline)
	}
	oid, ok := us.FileID.(primitive.ObjectID)
	if !ok {
		_ = us.Abort()
		return "", nil, fmt.Errorf("unexpected gridfs file id %v", us.FileID)
	}
	return oid.Hex(), us, nil
}

func (g *gridFSBucket) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	ds, err := g.bucket.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs download stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ds.SetReadDeadline(deadline)
	}
	return ds, nil
}

func (g *gridFSBucket) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	err = g.bucket.DeleteContext(ctx, oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete gridfs file: %w", err)
	}
	return nil
}
