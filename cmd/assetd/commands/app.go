package commands

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/stemyke/node-backend-sub000/asset"
	"github.com/stemyke/node-backend-sub000/cache"
	"github.com/stemyke/node-backend-sub000/concurrency"
	"github.com/stemyke/node-backend-sub000/config"
	"github.com/stemyke/node-backend-sub000/data/blob"
	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/data/mongodb"
	"github.com/stemyke/node-backend-sub000/data/redis"
	"github.com/stemyke/node-backend-sub000/jobs"
	"github.com/stemyke/node-backend-sub000/lazyasset"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/notify"
	"github.com/stemyke/node-backend-sub000/oss"
	"github.com/stemyke/node-backend-sub000/progress"
	"github.com/stemyke/node-backend-sub000/queue"
)

const lazyCacheKey = "assetd:lazy"

// app holds the services shared by serve and worker.
type app struct {
	cfg *config.Config

	mongo  *mongodb.Manager
	redis  *goredis.Client
	rabbit *queue.RabbitMQ
	local  *queue.Local

	queue    queue.Queue
	registry *queue.Registry
	hub      *notify.Hub
	relay    *notify.Redis

	assets     *asset.Store
	progresses *progress.Store
	lazy       *lazyasset.Store

	cleanup []func(ctx context.Context)
}

// newApp connects the stores. withHub creates the websocket hub that
// progress events are delivered to.
func newApp(ctx context.Context, cfg *config.Config, withHub bool) (*app, error) {
	a := &app{cfg: cfg, registry: queue.NewRegistry()}
	if err := a.init(ctx, withHub); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, withHub bool) error {
	cfg := a.cfg

	cleanupLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	a.cleanup = append(a.cleanup, func(context.Context) { cleanupLogger() })

	if a.mongo, err = mongodb.NewManager(ctx, cfg.Data.MongoDB); err != nil {
		return err
	}
	a.cleanup = append(a.cleanup, func(ctx context.Context) {
		if err := a.mongo.Close(ctx); err != nil {
			logger.Error(ctx, "failed to close mongodb", "error", err)
		}
	})

	bucket, err := a.bucket(ctx)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.Noop{}
	if withHub {
		a.hub = notify.NewHub()
		notifier = a.hub
	}
	lazyCache := cache.ICache[string](cache.NewMemory[string]())
	if redis.Enabled(cfg.Data.Redis) {
		if a.redis, err = redis.NewClient(ctx, cfg.Data.Redis); err != nil {
			return err
		}
		a.cleanup = append(a.cleanup, func(ctx context.Context) { _ = a.redis.Close() })
		lazyCache = cache.NewCache[string](a.redis, lazyCacheKey)
		// events reach the hub of every instance through the channel
		a.relay = notify.NewRedis(a.redis, notify.DefaultChannel)
		notifier = a.relay
	}

	limiter, err := concurrency.NewManager(int32(cfg.Asset.ImageConcurrency))
	if err != nil {
		return err
	}
	names := cfg.Asset.Collections
	a.assets = asset.NewStore(collection.NewMongo(a.mongo.Collection(names.Assets)), bucket, asset.WithImageLimiter(limiter))
	a.progresses = progress.NewStore(collection.NewMongo(a.mongo.Collection(names.Progresses)),
		progress.WithNotifier(notifier),
		progress.WithPollInterval(cfg.Asset.PollInterval),
		progress.WithWaitTimeout(cfg.Asset.WaitTimeout),
	)

	if cfg.Data.RabbitMQ != nil && cfg.Data.RabbitMQ.URL != "" {
		if a.rabbit, err = queue.DialRabbitMQ(cfg.Data.RabbitMQ); err != nil {
			return err
		}
		a.cleanup = append(a.cleanup, func(ctx context.Context) {
			if err := a.rabbit.Close(); err != nil {
				logger.Error(ctx, "failed to close rabbitmq", "error", err)
			}
		})
		a.queue = a.rabbit
	} else {
		a.local = queue.NewLocal(cfg.Worker, a.registry)
		a.queue = a.local
	}

	a.lazy = lazyasset.NewStore(collection.NewMongo(a.mongo.Collection(names.LazyAssets)), a.assets, a.progresses, a.queue,
		lazyasset.WithCache(lazyCache, cfg.Asset.CacheTTL),
		lazyasset.WithDefaultQueue(cfg.Asset.DefaultQueue),
		lazyasset.WithPollInterval(cfg.Asset.PollInterval),
	)
	if err := a.lazy.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create lazy asset indexes: %w", err)
	}
	jobs.Register(a.registry, lazyasset.NewGenerator(a.lazy), a.assets, a.lazy)
	return nil
}

func (a *app) bucket(ctx context.Context) (blob.Bucket, error) {
	sc := a.cfg.Storage
	if sc.UseGridFS() {
		b, err := a.mongo.Bucket(sc.Bucket)
		if err != nil {
			return nil, err
		}
		return blob.NewGridFS(b), nil
	}
	storage, err := oss.NewStorage(ctx, &sc.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", sc.Provider, err)
	}
	return blob.NewOSS(storage, "assets"), nil
}

// scheduler builds the cron scheduler from the config entries.
func (a *app) scheduler() (*queue.Scheduler, error) {
	s := queue.NewScheduler(a.queue)
	for _, e := range a.cfg.Scheduler {
		if _, err := s.Add(queue.Entry{Spec: e.Spec, Queue: e.Queue, Job: e.Job, Params: e.Params}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// close releases connections in reverse order of creation.
func (a *app) close(ctx context.Context) {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i](ctx)
	}
	a.cleanup = nil
}
