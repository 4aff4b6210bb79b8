package asset

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/font/sfnt"

	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
)

var fontTypes = map[string]bool{
	"application/font-sfnt":       true,
	"application/x-font-ttf":      true,
	"application/x-font-otf":      true,
	"application/vnd.ms-opentype": true,
}

func isFont(contentType string) bool {
	mt := mediaType(contentType)
	return strings.HasPrefix(mt, "font/") || fontTypes[mt]
}

// imageFormat returns the codec of an image content type.
func imageFormat(contentType string) (imaging.Format, bool) {
	if kindOf(contentType) != "image" {
		return 0, false
	}
	f, err := imaging.FormatFromExtension(extensionFor(contentType))
	if err != nil {
		return 0, false
	}
	return f, true
}

// exifOrientation reads the EXIF orientation tag, 1 when absent.
func exifOrientation(buf []byte) int {
	// non-critical sub-IFD errors still return usable tags
	x, _ := exif.Decode(bytes.NewReader(buf))
	if x == nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// processImage bakes the EXIF orientation into the pixels and records the
// dimensions. Buffers that cannot be decoded are stored untouched.
func (s *Store) processImage(ctx context.Context, buf []byte, contentType string) ([]byte, map[string]any, error) {
	format, ok := imageFormat(contentType)
	if !ok {
		return buf, nil, nil
	}
	out := buf
	extra := map[string]any{}

	err := s.images.Do(ctx, func(ctx context.Context) error {
		orientation := exifOrientation(buf)
		extra["orientation"] = orientation
		if orientation == 1 {
			cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
			if err != nil {
				return err
			}
			extra["width"], extra["height"] = cfg.Width, cfg.Height
			return nil
		}

		img, err := imaging.Decode(bytes.NewReader(buf))
		if err != nil {
			return err
		}
		img = orient(img, orientation)
		var b bytes.Buffer
		if err := imaging.Encode(&b, img, format); err != nil {
			return err
		}
		out = b.Bytes()
		extra["width"], extra["height"] = img.Bounds().Dx(), img.Bounds().Dy()
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		logger.Warn(ctx, "image processing skipped", "content_type", contentType, "error", err)
		return buf, nil, nil
	}
	return out, extra, nil
}

// fontInfo extracts naming metadata from TrueType and OpenType fonts.
func fontInfo(ctx context.Context, buf []byte) map[string]any {
	f, err := sfnt.Parse(buf)
	if err != nil {
		logger.Warn(ctx, "font metadata skipped", "error", err)
		return nil
	}
	var b sfnt.Buffer
	extra := map[string]any{"glyphCount": f.NumGlyphs()}
	names := []struct {
		key string
		id  sfnt.NameID
	}{
		{"fontFamily", sfnt.NameIDFamily},
		{"fontSubfamily", sfnt.NameIDSubfamily},
		{"fontName", sfnt.NameIDFull},
	}
	for _, n := range names {
		if v, err := f.Name(&b, n.id); err == nil && v != "" {
			extra[n.key] = v
		}
	}
	return extra
}

// render applies params to a stored image and encodes it in its own format.
func (s *Store) render(ctx context.Context, buf []byte, contentType string, crop *Rect, p ImageParams) ([]byte, map[string]any, error) {
	format, ok := imageFormat(contentType)
	if !ok {
		return nil, nil, ecode.Errorf(ecode.InvalidArgument, "%s is not a supported image type", contentType)
	}
	var (
		out   []byte
		extra map[string]any
	)
	err := s.images.Do(ctx, func(ctx context.Context) error {
		img, err := imaging.Decode(bytes.NewReader(buf))
		if err != nil {
			return ecode.Wrap(ecode.InvalidArgument, err, ecode.FieldIsInvalid("image"))
		}
		if crop != nil {
			b := img.Bounds()
			w, h := float64(b.Dx()), float64(b.Dy())
			rect := image.Rect(
				b.Min.X+int(math.Round(crop.X*w)),
				b.Min.Y+int(math.Round(crop.Y*h)),
				b.Min.X+int(math.Round((crop.X+crop.W)*w)),
				b.Min.Y+int(math.Round((crop.Y+crop.H)*h)),
			)
			img = imaging.Crop(img, rect)
		}
		if p.Rotation != 0 {
			img = imaging.Rotate(img, p.Rotation, color.Transparent)
		}
		if p.Scale > 0 && p.Scale != 1 {
			b := img.Bounds()
			w := int(math.Max(1, math.Round(float64(b.Dx())*p.Scale)))
			h := int(math.Max(1, math.Round(float64(b.Dy())*p.Scale)))
			img = imaging.Resize(img, w, h, imaging.Lanczos)
		}
		var b bytes.Buffer
		if err := imaging.Encode(&b, img, format); err != nil {
			return ecode.Wrap(ecode.ServerErr, err, ecode.Failed("encode image"))
		}
		out = b.Bytes()
		extra = map[string]any{"width": img.Bounds().Dx(), "height": img.Bounds().Dy()}
		return nil
	})
	return out, extra, err
}
