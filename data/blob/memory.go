package blob

import (
	"bytes"
	"context"
	"io"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is a Bucket held in process memory.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

type memoryFile struct {
	filename string
	meta     map[string]any
	data     []byte
}

// NewMemory creates an empty in-memory bucket.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]memoryFile)}
}

// Len returns the number of stored payloads.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

func (m *Memory) OpenUploadStream(ctx context.Context, filename string, meta map[string]any) (string, io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	id := primitive.NewObjectID().Hex()
	return id, &memoryUpload{bucket: m, id: id, filename: filename, meta: meta}, nil
}

func (m *Memory) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	f, ok := m.files[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	return nil
}

type memoryUpload struct {
	bucket   *Memory
	id       string
	filename string
	meta     map[string]any
	buf      bytes.Buffer
	closed   bool
}

func (u *memoryUpload) Write(p []byte) (int, error) {
	if u.closed {
		return 0, io.ErrClosedPipe
	}
	return u.buf.Write(p)
}

func (u *memoryUpload) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.bucket.mu.Lock()
	defer u.bucket.mu.Unlock()
	u.bucket.files[u.id] = memoryFile{filename: u.filename, meta: u.meta, data: u.buf.Bytes()}
	return nil
}

func (u *memoryUpload) Abort() error {
	u.closed = true
	return nil
}
