package oss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSAdapter struct {
	client       *storage.Client
	bucket       string
	bucketHandle *storage.BucketHandle
}

func NewGCSAdapter(ctx context.Context, serviceAccountJSON, bucket string) (*GCSAdapter, error) {
	var opts []option.ClientOption
	if serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountJSON))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSAdapter{
		client:       client,
		bucket:       bucket,
		bucketHandle: client.Bucket(bucket),
	}, nil
}

func (a *GCSAdapter) GetStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	reader, err := a.bucketHandle.Object(path).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	return reader, nil
}

func (a *GCSAdapter) Put(ctx context.Context, path string, reader io.Reader, contentType string) (*Object, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	obj := a.bucketHandle.Object(path)
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentTypeOrDefault(contentType)

	if _, err := io.Copy(writer, reader); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	attrs := writer.Attrs()
	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		LastModified: &attrs.Updated,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
	}, nil
}

func (a *GCSAdapter) Delete(ctx context.Context, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	err := a.bucketHandle.Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (a *GCSAdapter) GetURL(_ context.Context, path string) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(1 * time.Hour),
	}

	url, err := a.bucketHandle.SignedURL(path, opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return url, nil
}

func (a *GCSAdapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := a.Stat(ctx, path)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (a *GCSAdapter) Stat(ctx context.Context, path string) (*Object, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	attrs, err := a.bucketHandle.Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object attrs: %w", err)
	}
	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		LastModified: &attrs.Updated,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
	}, nil
}

// Close releases the client.
func (a *GCSAdapter) Close() error {
	return a.client.Close()
}

type gcsDriver struct{}

func (d *gcsDriver) Name() string { return "gcs" }

func (d *gcsDriver) Connect(ctx context.Context, cfg *Config) (Interface, error) {
	path := cfg.ServiceAccountJSON
	if path == "" {
		path = cfg.Secret
	}
	return NewGCSAdapter(ctx, path, cfg.Bucket)
}

func init() {
	RegisterDriver(&gcsDriver{})
}
