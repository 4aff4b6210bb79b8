package oss

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	c := &Config{Provider: "local"}
	require.NoError(t, c.Validate())
	assert.Equal(t, "filesystem", c.Provider)
	assert.Equal(t, "./uploads", c.Bucket)

	c = &Config{Provider: "aws", ID: "id", Secret: "secret", Bucket: "b"}
	require.NoError(t, c.Validate())
	assert.Equal(t, "s3", c.Provider)
	assert.Equal(t, "us-east-1", c.Region)

	assert.Error(t, (&Config{Provider: "minio", ID: "id"}).Validate())
	assert.Error(t, (&Config{Provider: "ftp"}).Validate())
	assert.Error(t, (&Config{}).Validate())
}

func TestDriversRegistered(t *testing.T) {
	assert.Equal(t, []string{"filesystem", "gcs", "minio", "s3"}, Drivers())
}

func TestFileSystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, err := NewStorage(ctx, &Config{Provider: "filesystem", Bucket: t.TempDir()})
	require.NoError(t, err)

	obj, err := storage.Put(ctx, "a/b.txt", bytes.NewReader([]byte("hello")), "text/plain")
	require.NoError(t, err)
	assert.EqualValues(t, 5, obj.Size)

	exists, err := storage.Exists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := storage.GetStream(ctx, "a/b.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, storage.Delete(ctx, "a/b.txt"))
	assert.ErrorIs(t, storage.Delete(ctx, "a/b.txt"), ErrObjectNotFound)
	_, err = storage.GetStream(ctx, "a/b.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFileSystemConfinesPaths(t *testing.T) {
	fs, err := NewFileSystem(t.TempDir())
	require.NoError(t, err)

	fp, err := fs.GetFullPath("../../etc/passwd")
	require.NoError(t, err)
	assert.Contains(t, fp, fs.Folder)
}
