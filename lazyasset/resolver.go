package lazyasset

import (
	"context"

	"github.com/stemyke/node-backend-sub000/asset"
)

// Resolver finds assets by id across the asset and lazy asset stores.
type Resolver struct {
	assets *asset.Store
	lazy   *Store
}

// NewResolver creates a resolver.
func NewResolver(assets *asset.Store, lazy *Store) *Resolver {
	return &Resolver{assets: assets, lazy: lazy}
}

// Resolve returns the asset for id, or nil when neither store knows it.
// With lazy set only lazy assets are considered. A lazy asset is loaded,
// generating it first when needed. The cached asset id of a lazy asset is
// only used while its record exists.
func (r *Resolver) Resolve(ctx context.Context, id string, lazy bool) (*asset.Asset, error) {
	if id == "" {
		return nil, nil
	}
	if !lazy {
		a, err := r.assets.Read(ctx, id)
		if err != nil || a != nil {
			return a, err
		}
	}

	l, err := r.lazy.Get(ctx, id)
	if err != nil || l == nil {
		return nil, err
	}
	if assetID := r.lazy.cachedAssetID(ctx, id); assetID != "" {
		a, err := r.assets.Read(ctx, assetID)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
		r.lazy.forget(ctx, id)
	}
	return l.LoadAsset(ctx)
}
