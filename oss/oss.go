// Package oss provides a unified object storage abstraction over the local
// filesystem, AWS S3 (and S3-compatible services), MinIO and Google Cloud
// Storage.
//
// Providers register a Driver in init(); NewStorage picks one by name.
package oss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// ErrObjectNotFound is returned when the addressed object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Interface defines unified object storage operations.
type Interface interface {
	// GetStream returns a readable stream for the object.
	// Caller is responsible for closing the reader when done.
	GetStream(ctx context.Context, path string) (io.ReadCloser, error)

	// Put uploads the reader to the specified path.
	Put(ctx context.Context, path string, reader io.Reader, contentType string) (*Object, error)

	// Delete removes the object, returning ErrObjectNotFound when it is absent.
	Delete(ctx context.Context, path string) error

	// Exists checks if an object exists at the specified path.
	Exists(ctx context.Context, path string) (bool, error)

	// Stat retrieves object metadata without downloading content.
	Stat(ctx context.Context, path string) (*Object, error)

	// GetURL returns a URL the object can be downloaded from.
	GetURL(ctx context.Context, path string) (string, error)
}

// Object represents metadata about a stored object.
type Object struct {
	Path         string
	Name         string
	LastModified *time.Time
	Size         int64
	ContentType  string
}

// Config holds configuration for object storage providers.
type Config struct {
	Provider           string `json:"provider" yaml:"provider"`                                             // filesystem, s3, minio, gcs
	ID                 string `json:"id" yaml:"id"`                                                         // Access key ID
	Secret             string `json:"secret" yaml:"secret"`                                                 // Secret access key
	Region             string `json:"region" yaml:"region"`                                                 // Region (S3)
	Bucket             string `json:"bucket" yaml:"bucket"`                                                 // Bucket name or local folder
	Endpoint           string `json:"endpoint" yaml:"endpoint"`                                             // Custom endpoint (required for MinIO)
	UseSSL             bool   `json:"use_ssl" yaml:"use_ssl"`                                               // MinIO transport security
	ServiceAccountJSON string `json:"service_account_json,omitempty" yaml:"service_account_json,omitempty"` // Service account JSON file path for Google Cloud Storage
}

// Validate checks if the configuration is valid and sets default values where applicable.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return errors.New("storage provider is required")
	}

	switch c.Provider {
	case "filesystem", "local":
		c.Provider = "filesystem"
		if c.Bucket == "" {
			c.Bucket = "./uploads"
		}
	case "s3", "aws-s3", "aws":
		c.Provider = "s3"
		if c.ID == "" || c.Secret == "" || c.Bucket == "" {
			return errors.New("id, secret, and bucket are required for AWS S3")
		}
		if c.Region == "" {
			c.Region = "us-east-1"
		}
	case "minio":
		if c.ID == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
			return errors.New("id, secret, bucket, and endpoint are required for MinIO")
		}
	case "gcs", "google", "google-cloud":
		c.Provider = "gcs"
		if c.Bucket == "" {
			return errors.New("bucket is required for Google Cloud Storage")
		}
	default:
		return fmt.Errorf("unsupported storage provider: %s", c.Provider)
	}

	return nil
}

// Driver defines the storage driver interface.
type Driver interface {
	// Name returns the driver name.
	Name() string

	// Connect establishes a connection to the storage service.
	Connect(ctx context.Context, cfg *Config) (Interface, error)
}

var (
	registryMu     sync.RWMutex
	driverRegistry = make(map[string]Driver)
)

// RegisterDriver registers a storage driver.
// Typically called in the driver's init function.
func RegisterDriver(driver Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name := driver.Name()
	if _, exists := driverRegistry[name]; exists {
		panic(fmt.Sprintf("oss driver %s already registered", name))
	}
	driverRegistry[name] = driver
}

// GetDriver retrieves a driver by name.
func GetDriver(name string) (Driver, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	driver, ok := driverRegistry[name]
	if !ok {
		return nil, fmt.Errorf("oss driver %s not found", name)
	}
	return driver, nil
}

// Drivers returns the registered driver names.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(driverRegistry))
	for name := range driverRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStorage creates a storage instance based on the provided configuration.
func NewStorage(ctx context.Context, c *Config) (Interface, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}

	driver, err := GetDriver(c.Provider)
	if err != nil {
		return nil, err
	}

	storage, err := driver.Connect(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to connect with %s driver: %w", c.Provider, err)
	}

	return storage, nil
}

func checkPath(path string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
