package oss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Adapter implements the Interface for AWS S3 storage.
// Supports both AWS S3 and S3-compatible services with custom endpoints.
type S3Adapter struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	region   string
	endpoint string
}

// NewS3Adapter creates a new S3 storage adapter.
// For S3-compatible services, set the endpoint parameter.
func NewS3Adapter(ctx context.Context, accessKeyID, secretAccessKey, region, bucket, endpoint string) (*S3Adapter, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Adapter{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   bucket,
		region:   region,
		endpoint: endpoint,
	}, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

// GetStream returns a readable stream for the S3 object.
func (a *S3Adapter) GetStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return resp.Body, nil
}

// Put uploads a file to S3 from the given reader.
func (a *S3Adapter) Put(ctx context.Context, path string, reader io.Reader, contentType string) (*Object, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	contentType = contentTypeOrDefault(contentType)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(path),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object: %w", err)
	}

	now := time.Now()
	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		LastModified: &now,
		ContentType:  contentType,
	}, nil
}

// Delete removes an object from the S3 bucket. S3 deletes are idempotent,
// so the object is looked up first to report absence.
func (a *S3Adapter) Delete(ctx context.Context, path string) error {
	exists, err := a.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return ErrObjectNotFound
	}

	_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetURL generates a presigned URL valid for 1 hour.
func (a *S3Adapter) GetURL(ctx context.Context, path string) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}

	presignedReq, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(1*time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedReq.URL, nil
}

// Exists checks if an object exists in the S3 bucket.
func (a *S3Adapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := a.Stat(ctx, path)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Stat retrieves object metadata without downloading content.
func (a *S3Adapter) Stat(ctx context.Context, path string) (*Object, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}

	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	return &Object{
		Path:         path,
		Name:         filepath.Base(path),
		LastModified: resp.LastModified,
		Size:         aws.ToInt64(resp.ContentLength),
		ContentType:  aws.ToString(resp.ContentType),
	}, nil
}

// s3Driver implements the Driver interface for AWS S3.
type s3Driver struct{}

func (d *s3Driver) Name() string {
	return "s3"
}

func (d *s3Driver) Connect(ctx context.Context, cfg *Config) (Interface, error) {
	return NewS3Adapter(ctx, cfg.ID, cfg.Secret, cfg.Region, cfg.Bucket, cfg.Endpoint)
}

func init() {
	RegisterDriver(&s3Driver{})
}
