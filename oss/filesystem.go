package oss

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileSystem stores objects as files below a base folder.
type FileSystem struct {
	Folder string
}

// NewFileSystem creates a local file system storage, creating the folder if needed.
func NewFileSystem(folder string) (*FileSystem, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get absolute path for base folder")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create base folder")
	}
	return &FileSystem{Folder: abs}, nil
}

// GetFullPath resolves p below the base folder. Paths escaping the folder are rejected.
func (fs *FileSystem) GetFullPath(p string) (string, error) {
	if err := checkPath(p); err != nil {
		return "", err
	}
	fp := filepath.Join(fs.Folder, filepath.Clean("/"+p))
	if fp != fs.Folder && !strings.HasPrefix(fp, fs.Folder+string(filepath.Separator)) {
		return "", errors.Errorf("path %q escapes storage folder", p)
	}
	return fp, nil
}

// GetStream opens the file for reading.
func (fs *FileSystem) GetStream(_ context.Context, p string) (io.ReadCloser, error) {
	fp, err := fs.GetFullPath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	return f, nil
}

// Put stores the reader into the given path.
func (fs *FileSystem) Put(ctx context.Context, p string, r io.Reader, contentType string) (*Object, error) {
	fp, err := fs.GetFullPath(p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create directories for file path")
	}

	dst, err := os.Create(fp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file")
	}
	defer dst.Close()

	if err := ctx.Err(); err != nil {
		_ = os.Remove(fp)
		return nil, err
	}
	n, err := io.Copy(dst, r)
	if err != nil {
		_ = os.Remove(fp)
		return nil, errors.Wrap(err, "failed to copy data to file")
	}

	info, err := dst.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file")
	}
	mt := info.ModTime()
	return &Object{
		Path:         p,
		Name:         filepath.Base(p),
		LastModified: &mt,
		Size:         n,
		ContentType:  contentTypeOrDefault(contentType),
	}, nil
}

// Delete deletes a file.
func (fs *FileSystem) Delete(_ context.Context, p string) error {
	fp, err := fs.GetFullPath(p)
	if err != nil {
		return err
	}
	err = os.Remove(fp)
	if os.IsNotExist(err) {
		return ErrObjectNotFound
	}
	return errors.Wrap(err, "failed to delete file")
}

// Exists checks whether the file exists.
func (fs *FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := fs.Stat(ctx, p)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Stat returns the file metadata.
func (fs *FileSystem) Stat(_ context.Context, p string) (*Object, error) {
	fp, err := fs.GetFullPath(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fp)
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file")
	}
	mt := info.ModTime()
	return &Object{Path: p, Name: info.Name(), LastModified: &mt, Size: info.Size()}, nil
}

// GetURL returns the object path, which the HTTP layer serves directly.
func (fs *FileSystem) GetURL(_ context.Context, p string) (string, error) {
	if err := checkPath(p); err != nil {
		return "", err
	}
	return "/" + strings.TrimPrefix(p, "/"), nil
}

type fileSystemDriver struct{}

func (d *fileSystemDriver) Name() string { return "filesystem" }

func (d *fileSystemDriver) Connect(_ context.Context, cfg *Config) (Interface, error) {
	return NewFileSystem(cfg.Bucket)
}

func init() {
	RegisterDriver(&fileSystemDriver{})
}
