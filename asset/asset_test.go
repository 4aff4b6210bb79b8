package asset

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/stemyke/node-backend-sub000/concurrency"
	"github.com/stemyke/node-backend-sub000/data/blob"
	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/ecode"
)

func newTestStore(t *testing.T) (*Store, *collection.Memory, *blob.Memory) {
	t.Helper()
	coll := collection.NewMemory("assets")
	bucket := blob.NewMemory()
	limiter, err := concurrency.NewManager(2)
	require.NoError(t, err)
	return NewStore(coll, bucket, WithImageLimiter(limiter)), coll, bucket
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 100, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, png.Encode(&b, testImage(w, h)))
	return b.Bytes()
}

// jpegWithOrientation encodes a JPEG carrying a minimal EXIF block.
func jpegWithOrientation(t *testing.T, w, h int, orientation uint16) []byte {
	t.Helper()
	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, testImage(w, h), nil))
	raw := enc.Bytes()

	var tiff bytes.Buffer
	tiff.WriteString("MM\x00\x2a")
	_ = binary.Write(&tiff, binary.BigEndian, uint32(8))
	_ = binary.Write(&tiff, binary.BigEndian, uint16(1))      // entries
	_ = binary.Write(&tiff, binary.BigEndian, uint16(0x0112)) // orientation
	_ = binary.Write(&tiff, binary.BigEndian, uint16(3))      // SHORT
	_ = binary.Write(&tiff, binary.BigEndian, uint32(1))
	_ = binary.Write(&tiff, binary.BigEndian, orientation)
	_ = binary.Write(&tiff, binary.BigEndian, uint16(0))
	_ = binary.Write(&tiff, binary.BigEndian, uint32(0)) // next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var out bytes.Buffer
	out.Write(raw[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(raw[2:])
	return out.Bytes()
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	data := pngBytes(t, 3, 3)

	a, err := s.Write(ctx, bytes.NewReader(data), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "image/png", a.ContentType())
	assert.True(t, strings.HasSuffix(a.Filename(), ".png"))

	m := a.Meta()
	assert.Equal(t, "png", m.Extension)
	assert.Equal(t, int64(len(data)), m.Length)
	assert.Zero(t, m.DownloadCount)
	assert.Nil(t, m.FirstDownload)
	assert.Nil(t, m.LastDownload)

	got, err := s.Read(ctx, a.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	buf, err := got.Buffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, buf)
	assert.Equal(t, "image/png", got.ContentType())

	found, err := s.Find(ctx, bson.M{"filename": a.Filename()})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.ID(), found.ID())

	missing, err := s.Read(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWriteWithContentTypeAndFilename(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	a, err := s.Write(ctx, strings.NewReader("hello"), "text/plain", &Meta{
		Filename:      "notes.txt",
		DownloadCount: 7,
		Extra:         map[string]any{"source": "upload"},
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", a.Filename())
	assert.Equal(t, "text/plain", a.ContentType())

	m := a.Meta()
	assert.Equal(t, "txt", m.Extension)
	assert.Zero(t, m.DownloadCount)
	assert.Equal(t, "upload", m.Extra["source"])
}

func TestWriteUnknownContentType(t *testing.T) {
	ctx := context.Background()
	s, coll, bucket := newTestStore(t)

	_, err := s.Write(ctx, bytes.NewReader(nil), "", nil)
	assert.True(t, ecode.Is(err, ecode.ContentTypeUnknown))

	_, err = s.WriteBuffer(ctx, nil, nil, "")
	assert.True(t, ecode.Is(err, ecode.ContentTypeUnknown))

	assert.Zero(t, coll.Len())
	assert.Zero(t, bucket.Len())
}

func TestSniffKeepsWholeStream(t *testing.T) {
	data := append(pngBytes(t, 4, 4), bytes.Repeat([]byte{0x42}, 2*sniffLen)...)

	ct, ext, body, err := Sniff(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "png", ext)

	all, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, data, all)
}

func TestWriteBufferNormalizesOrientation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	data := jpegWithOrientation(t, 8, 4, 6)
	require.Equal(t, 6, exifOrientation(data))

	a, err := s.WriteBuffer(ctx, data, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", a.ContentType())

	m := a.Meta()
	assert.EqualValues(t, 4, m.Extra["width"])
	assert.EqualValues(t, 8, m.Extra["height"])
	assert.EqualValues(t, 6, m.Extra["orientation"])

	stored, err := a.Buffer(ctx)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
	assert.Equal(t, 1, exifOrientation(stored))
}

func TestWriteBufferRecordsDimensions(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	data := pngBytes(t, 6, 2)

	a, err := s.WriteBuffer(ctx, data, &Meta{Filename: "strip.png"}, "image/png")
	require.NoError(t, err)

	m := a.Meta()
	assert.EqualValues(t, 6, m.Extra["width"])
	assert.EqualValues(t, 2, m.Extra["height"])

	stored, err := a.Buffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestWriteBufferFontMetadata(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	a, err := s.WriteBuffer(ctx, goregular.TTF, nil, "")
	require.NoError(t, err)
	assert.True(t, isFont(a.ContentType()))

	m := a.Meta()
	assert.Equal(t, "Go", m.Extra["fontFamily"])
	assert.Equal(t, "Regular", m.Extra["fontSubfamily"])
	assert.NotZero(t, m.Extra["glyphCount"])
}

func TestDownloadCounts(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	a, err := s.Write(ctx, strings.NewReader("payload"), "text/plain", nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rc, err := a.Download(ctx)
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "payload", string(b))
	}

	got, err := s.Read(ctx, a.ID())
	require.NoError(t, err)
	m := got.Meta()
	assert.Equal(t, int64(2), m.DownloadCount)
	require.NotNil(t, m.FirstDownload)
	require.NotNil(t, m.LastDownload)
	assert.False(t, m.LastDownload.Before(*m.FirstDownload))
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()
	s, coll, bucket := newTestStore(t)

	a, err := s.Write(ctx, strings.NewReader("bye"), "text/plain", nil)
	require.NoError(t, err)

	id, err := a.Unlink(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID(), id)
	assert.Zero(t, coll.Len())
	assert.Zero(t, bucket.Len())

	_, err = s.Unlink(ctx, a.ID())
	assert.True(t, ecode.Is(err, ecode.NotFound))
}

func TestUnlinkWithMissingPayload(t *testing.T) {
	ctx := context.Background()
	s, coll, bucket := newTestStore(t)

	a, err := s.Write(ctx, strings.NewReader("gone"), "text/plain", nil)
	require.NoError(t, err)
	require.NoError(t, bucket.Delete(ctx, a.rec.BlobID))

	id, err := s.Unlink(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, a.ID(), id)
	assert.Zero(t, coll.Len())

	_, err = a.Stream(ctx)
	assert.True(t, ecode.Is(err, ecode.NotFound))
}

func TestReadImage(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	a, err := s.WriteBuffer(ctx, pngBytes(t, 10, 20), nil, "")
	require.NoError(t, err)

	tmp, err := s.ReadImage(ctx, a.ID(), ImageParams{Scale: 0.5})
	require.NoError(t, err)
	require.NotNil(t, tmp)
	assert.Equal(t, a.ID(), tmp.ID())
	assert.Equal(t, "image/png", tmp.ContentType())
	assert.EqualValues(t, 5, tmp.Meta().Extra["width"])
	assert.EqualValues(t, 10, tmp.Meta().Extra["height"])

	tmp, err = s.ReadImage(ctx, a.ID(), ImageParams{Crop: &Rect{X: 0.5, Y: 0, W: 0.5, H: 0.25}, Rotation: 90})
	require.NoError(t, err)
	buf, err := tmp.Buffer(ctx)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Width)
	assert.Equal(t, 5, cfg.Height)
	assert.Equal(t, int64(len(buf)), tmp.Meta().Length)

	_, err = s.ReadImage(ctx, a.ID(), ImageParams{Crop: &Rect{X: 0.8, W: 0.5, H: 1}})
	assert.True(t, ecode.Is(err, ecode.InvalidArgument))

	none, err := s.ReadImage(ctx, "missing", ImageParams{})
	assert.NoError(t, err)
	assert.Nil(t, none)

	text, err := s.Write(ctx, strings.NewReader("plain"), "text/plain", nil)
	require.NoError(t, err)
	_, err = s.ReadImage(ctx, text.ID(), ImageParams{})
	assert.True(t, ecode.Is(err, ecode.InvalidArgument))
}

func TestTempAssetCannotBeUnlinked(t *testing.T) {
	ctx := context.Background()
	tmp := NewTempAsset("a1", Meta{Filename: "x.png", ContentType: "image/png"}, []byte{1, 2, 3})

	_, err := tmp.Unlink(ctx)
	assert.True(t, ecode.Is(err, ecode.UnlinkOfImmutableTempAsset))

	rc, err := tmp.Download(ctx)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	assert.Equal(t, int64(3), tmp.Meta().Length)

	var f File = tmp
	assert.Equal(t, "x.png", f.Filename())
}
