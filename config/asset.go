package config

import (
	"time"

	"github.com/spf13/viper"
)

// Asset asset and progress settings
type Asset struct {
	// PollInterval is the re-fetch period while waiting for a progress record
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
	// WaitTimeout bounds a single wait; 0 waits until the caller's context ends
	WaitTimeout time.Duration `json:"wait_timeout" yaml:"wait_timeout" validate:"gte=0"`
	// DefaultQueue receives lazy asset jobs that name no queue
	DefaultQueue string `json:"default_queue" yaml:"default_queue" validate:"required"`
	// CacheTTL is the lifetime of lazy id to asset id entries; 0 keeps them
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" validate:"gte=0"`
	// ImageConcurrency bounds concurrent image decoding
	ImageConcurrency int          `json:"image_concurrency" yaml:"image_concurrency" validate:"gte=1"`
	Collections      *Collections `json:"collections" yaml:"collections" validate:"required"`
}

// Collections names the metadata collections.
type Collections struct {
	Assets     string `json:"assets" yaml:"assets" validate:"required"`
	LazyAssets string `json:"lazy_assets" yaml:"lazy_assets" validate:"required"`
	Progresses string `json:"progresses" yaml:"progresses" validate:"required"`
}

func getAssetConfig(v *viper.Viper) *Asset {
	return &Asset{
		PollInterval:     getDurationOrDefault(v, "asset.poll_interval", 150*time.Millisecond),
		WaitTimeout:      getDurationOrDefault(v, "asset.wait_timeout", 0),
		DefaultQueue:     getStringOrDefault(v, "asset.default_queue", "main"),
		CacheTTL:         getDurationOrDefault(v, "asset.cache_ttl", 0),
		ImageConcurrency: getIntOrDefault(v, "asset.image_concurrency", 4),
		Collections: &Collections{
			Assets:     getStringOrDefault(v, "asset.collections.assets", "assets"),
			LazyAssets: getStringOrDefault(v, "asset.collections.lazy_assets", "lazyassets"),
			Progresses: getStringOrDefault(v, "asset.collections.progresses", "progresses"),
		},
	}
}
