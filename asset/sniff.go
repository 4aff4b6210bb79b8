package asset

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/stemyke/node-backend-sub000/ecode"
)

// sniffLen is how much of a stream's head is inspected.
const sniffLen = 3072

const octetStream = "application/octet-stream"

// Sniff detects the content type of r from its head. The returned reader
// yields the complete stream, head included.
func Sniff(r io.Reader) (contentType, ext string, body io.Reader, err error) {
	var head bytes.Buffer
	m, err := mimetype.DetectReader(io.TeeReader(io.LimitReader(r, sniffLen), &head))
	body = io.MultiReader(&head, r)
	if err != nil {
		return "", "", body, ecode.Wrap(ecode.ContentTypeUnknown, err, ecode.Failed("content sniffing"))
	}
	if head.Len() == 0 || m.Is(octetStream) {
		return "", "", body, ecode.New(ecode.ContentTypeUnknown, ecode.Text(ecode.ContentTypeUnknown))
	}
	return m.String(), trimDot(m.Extension()), body, nil
}

// SniffBuffer detects the content type of buf.
func SniffBuffer(buf []byte) (contentType, ext string, err error) {
	m := mimetype.Detect(buf)
	if len(buf) == 0 || m.Is(octetStream) {
		return "", "", ecode.New(ecode.ContentTypeUnknown, ecode.Text(ecode.ContentTypeUnknown))
	}
	return m.String(), trimDot(m.Extension()), nil
}

// extensionFor returns the usual extension of a content type, without dot.
func extensionFor(contentType string) string {
	if m := mimetype.Lookup(mediaType(contentType)); m != nil && m.Extension() != "" {
		return trimDot(m.Extension())
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return trimDot(exts[0])
	}
	return ""
}

// mediaType strips parameters such as charset.
func mediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}

// kindOf returns the top-level type, e.g. "image".
func kindOf(contentType string) string {
	mt := mediaType(contentType)
	if i := strings.IndexByte(mt, '/'); i > 0 {
		return mt[:i]
	}
	return "other"
}

func trimDot(ext string) string {
	return strings.TrimPrefix(ext, ".")
}
