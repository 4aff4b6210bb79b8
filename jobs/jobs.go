// Package jobs holds the generation and maintenance jobs the server ships with.
package jobs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stemyke/node-backend-sub000/asset"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/lazyasset"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/progress"
	"github.com/stemyke/node-backend-sub000/queue"
)

const (
	// ImageRendition renders a stored image with crop, scale and rotation
	// params into a lazy asset.
	ImageRendition = "image-rendition"
	// LazyRefresh restarts generation of the lazy asset named by param "id".
	LazyRefresh = "lazy-refresh"
)

// Register adds the built-in jobs to reg.
func Register(reg *queue.Registry, gen *lazyasset.Generator, assets *asset.Store, lazy *lazyasset.Store) {
	gen.Register(reg, ImageRendition, imageRendition(assets))
	reg.Register(LazyRefresh, lazyRefresh(lazy))
}

func imageRendition(assets *asset.Store) lazyasset.GenerateFunc {
	return func(ctx context.Context, params queue.Params, tracker progress.Tracker) (*lazyasset.Result, error) {
		id := params.String("assetId")
		if id == "" {
			return nil, ecode.New(ecode.InvalidArgument, ecode.FieldIsRequired("assetId"))
		}
		crop, err := asset.ParseRect(params.String("crop"))
		if err != nil {
			return nil, err
		}
		scale, err := float(params, "scale")
		if err != nil {
			return nil, err
		}
		rotation, err := float(params, "rotation")
		if err != nil {
			return nil, err
		}
		if err := tracker.SetMessage(ctx, "rendering "+id); err != nil {
			return nil, err
		}

		t, err := assets.ReadImage(ctx, id, asset.ImageParams{Crop: crop, Scale: scale, Rotation: rotation})
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, ecode.New(ecode.NotFound, ecode.NotExist("asset "+id))
		}
		if err := tracker.Advance(ctx, tracker.Max()); err != nil {
			return nil, err
		}
		data, err := t.Buffer(ctx)
		if err != nil {
			return nil, err
		}
		m := t.Meta()
		return &lazyasset.Result{
			Data:        data,
			ContentType: t.ContentType(),
			Meta:        &asset.Meta{Filename: m.Filename, Crop: m.Crop},
		}, nil
	}
}

func lazyRefresh(lazy *lazyasset.Store) queue.Handler {
	return func(ctx context.Context, params queue.Params) error {
		id := params.String("id")
		if id == "" {
			return ecode.New(ecode.InvalidArgument, ecode.FieldIsRequired("id"))
		}
		l, err := lazy.Get(ctx, id)
		if err != nil {
			return err
		}
		if l == nil {
			logger.Warn(ctx, "lazy asset to refresh does not exist", "lazy_id", id)
			return nil
		}
		<-l.StartWorking(ctx)
		return nil
	}
}

// float reads a numeric param. Values decoded from JSON or BSON arrive as
// various number types, or as strings from config files.
func float(params queue.Params, key string) (float64, error) {
	switch v := params[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, ecode.Wrap(ecode.InvalidArgument, err, ecode.FieldIsInvalid(key))
		}
		return f, nil
	default:
		return 0, ecode.New(ecode.InvalidArgument, fmt.Sprintf("%s has unsupported type %T", key, v))
	}
}
