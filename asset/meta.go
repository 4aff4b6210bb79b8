package asset

import (
	"strconv"
	"strings"
	"time"

	"github.com/stemyke/node-backend-sub000/ecode"
)

// Meta is the mutable metadata of a stored payload. Format specific values
// such as image dimensions or font names live in Extra.
type Meta struct {
	Filename      string         `bson:"filename" json:"filename"`
	Extension     string         `bson:"extension" json:"extension"`
	ContentType   string         `bson:"contentType" json:"contentType"`
	Length        int64          `bson:"length" json:"length"`
	DownloadCount int64          `bson:"downloadCount" json:"downloadCount"`
	FirstDownload *time.Time     `bson:"firstDownload,omitempty" json:"firstDownload"`
	LastDownload  *time.Time     `bson:"lastDownload,omitempty" json:"lastDownload"`
	Crop          *Rect          `bson:"crop,omitempty" json:"crop,omitempty"`
	Extra         map[string]any `bson:"extra,omitempty" json:"extra,omitempty"`
}

func (m Meta) clone() Meta {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	if m.Crop != nil {
		c := *m.Crop
		out.Crop = &c
	}
	return out
}

func (m *Meta) setExtra(values map[string]any) {
	if len(values) == 0 {
		return
	}
	if m.Extra == nil {
		m.Extra = make(map[string]any, len(values))
	}
	for k, v := range values {
		m.Extra[k] = v
	}
}

// Rect is a region given as fractions of the image size.
type Rect struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
	W float64 `bson:"w" json:"w"`
	H float64 `bson:"h" json:"h"`
}

// Validate checks that the region lies inside the unit square.
func (r Rect) Validate() error {
	if r.X < 0 || r.Y < 0 || r.W <= 0 || r.H <= 0 || r.X+r.W > 1 || r.Y+r.H > 1 {
		return ecode.New(ecode.InvalidArgument, ecode.FieldIsInvalid("crop"))
	}
	return nil
}

// ParseRect parses "x,y,w,h". An empty string yields nil.
func ParseRect(s string) (*Rect, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, ecode.New(ecode.InvalidArgument, ecode.FieldIsInvalid("crop"))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, ecode.Wrap(ecode.InvalidArgument, err, ecode.FieldIsInvalid("crop"))
		}
		v[i] = f
	}
	r := &Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ImageParams select a derived rendition of a stored image.
type ImageParams struct {
	// Crop defaults to the crop stored with the asset
	Crop *Rect
	// Scale multiplies both dimensions; 0 keeps them
	Scale float64
	// Rotation in degrees, counter-clockwise
	Rotation float64
}

func (p ImageParams) validate() error {
	if p.Crop != nil {
		if err := p.Crop.Validate(); err != nil {
			return err
		}
	}
	if p.Scale < 0 {
		return ecode.New(ecode.InvalidArgument, ecode.FieldNotPositive("scale"))
	}
	return nil
}
