package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"sync"

	"github.com/stemyke/node-backend-sub000/nanoid"
	"github.com/stemyke/node-backend-sub000/oss"
)

type ossBucket struct {
	storage oss.Interface
	prefix  string
}

// NewOSS stores payloads as objects below prefix. The generated id is the
// object key relative to prefix.
func NewOSS(storage oss.Interface, prefix string) Bucket {
	return &ossBucket{storage: storage, prefix: prefix}
}

func (b *ossBucket) key(id string) string {
	return path.Join(b.prefix, id)
}

func (b *ossBucket) OpenUploadStream(ctx context.Context, filename string, meta map[string]any) (string, io.WriteCloser, error) {
	id := nanoid.String(24) + path.Ext(filename)
	contentType, _ := meta["contentType"].(string)

	pr, pw := io.Pipe()
	w := &pipeUpload{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := b.storage.Put(ctx, b.key(id), pr, contentType)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return id, w, nil
}

func (b *ossBucket) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	r, err := b.storage.GetStream(ctx, b.key(id))
	if errors.Is(err, oss.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	return r, err
}

func (b *ossBucket) Delete(ctx context.Context, id string) error {
	err := b.storage.Delete(ctx, b.key(id))
	if errors.Is(err, oss.ErrObjectNotFound) {
		return ErrNotFound
	}
	return err
}

// pipeUpload feeds a background Put; Close waits for it to finish.
type pipeUpload struct {
	pw   *io.PipeWriter
	done chan error
	once sync.Once
	err  error
}

func (u *pipeUpload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *pipeUpload) Close() error {
	return u.finish(nil)
}

func (u *pipeUpload) Abort() error {
	_ = u.finish(errors.New("upload aborted"))
	return nil
}

func (u *pipeUpload) finish(cause error) error {
	u.once.Do(func() {
		_ = u.pw.CloseWithError(cause)
		u.err = <-u.done
	})
	return u.err
}
