package oss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioAdapter struct {
	client *minio.Client
	bucket string
}

func NewMinioAdapter(endpoint, accessKeyID, secretAccessKey, bucket string, useSSL bool) (*MinioAdapter, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioAdapter{
		client: client,
		bucket: bucket,
	}, nil
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func (a *MinioAdapter) GetStream(ctx context.Context, path string) (io.ReadCloser, error) {
	// GetObject is lazy; stat first so absence surfaces here instead of on Read.
	if _, err := a.Stat(ctx, path); err != nil {
		return nil, err
	}
	object, err := a.client.GetObject(ctx, a.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return object, nil
}

func (a *MinioAdapter) Put(ctx context.Context, path string, reader io.Reader, contentType string) (*Object, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	contentType = contentTypeOrDefault(contentType)
	info, err := a.client.PutObject(ctx, a.bucket, path, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object: %w", err)
	}

	now := time.Now()
	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		LastModified: &now,
		Size:         info.Size,
		ContentType:  contentType,
	}, nil
}

func (a *MinioAdapter) Delete(ctx context.Context, path string) error {
	if _, err := a.Stat(ctx, path); err != nil {
		return err
	}
	if err := a.client.RemoveObject(ctx, a.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (a *MinioAdapter) GetURL(ctx context.Context, path string) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}

	presignedURL, err := a.client.PresignedGetObject(ctx, a.bucket, path, 1*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedURL.String(), nil
}

func (a *MinioAdapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := a.Stat(ctx, path)
	if err == ErrObjectNotFound {
		return false, nil
	}
	return err == nil, err
}

func (a *MinioAdapter) Stat(ctx context.Context, path string) (*Object, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	info, err := a.client.StatObject(ctx, a.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		LastModified: &info.LastModified,
		Size:         info.Size,
		ContentType:  info.ContentType,
	}, nil
}

type minioDriver struct{}

func (d *minioDriver) Name() string { return "minio" }

func (d *minioDriver) Connect(_ context.Context, cfg *Config) (Interface, error) {
	return NewMinioAdapter(cfg.Endpoint, cfg.ID, cfg.Secret, cfg.Bucket, cfg.UseSSL)
}

func init() {
	RegisterDriver(&minioDriver{})
}
