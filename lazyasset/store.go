// Package lazyasset resolves assets that are generated on first request by
// background jobs, with progress tracking and at-most-once job start.
package lazyasset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/stemyke/node-backend-sub000/asset"
	"github.com/stemyke/node-backend-sub000/cache"
	"github.com/stemyke/node-backend-sub000/ctxutil"
	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/progress"
	"github.com/stemyke/node-backend-sub000/queue"
)

// LazyIDParam is the job parameter carrying the lazy asset id.
const LazyIDParam = "lazyId"

// Store creates and loads lazy asset records and holds the services they
// work with.
type Store struct {
	coll         collection.Collection
	assets       *asset.Store
	progresses   *progress.Store
	queue        queue.Queue
	cache        cache.ICache[string]
	cacheTTL     time.Duration
	defaultQueue string
	asyncTimeout time.Duration
	pollInterval time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithCache sets the lazy id to asset id cache. ttl 0 keeps entries.
func WithCache(c cache.ICache[string], ttl time.Duration) Option {
	return func(s *Store) {
		if c != nil {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

// WithDefaultQueue sets the queue of records created without one.
func WithDefaultQueue(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.defaultQueue = name
		}
	}
}

// WithAsyncTimeout bounds StartWorking.
func WithAsyncTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.asyncTimeout = d
		}
	}
}

// WithPollInterval sets the pause between LoadAsset rounds that made no
// progress, such as a canceled wait.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewStore creates a store.
func NewStore(coll collection.Collection, assets *asset.Store, progresses *progress.Store, q queue.Queue, opts ...Option) *Store {
	s := &Store{
		coll:         coll,
		assets:       assets,
		progresses:   progresses,
		queue:        q,
		cache:        cache.NewMemory[string](),
		defaultQueue: queue.DefaultQueue,
		asyncTimeout: ctxutil.DefaultAsyncTimeout,
		pollInterval: progress.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the job key index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return s.coll.EnsureIndex(ctx, "jobKey", true)
}

// Create returns the record for the job descriptor, creating it when no
// record with the same name, queue and params exists.
func (s *Store) Create(ctx context.Context, jobName string, params queue.Params, jobQueue string) (*LazyAsset, error) {
	if jobName == "" {
		return nil, ecode.New(ecode.InvalidArgument, ecode.FieldIsRequired("jobName"))
	}
	if _, ok := params[LazyIDParam]; ok {
		return nil, ecode.Errorf(ecode.InvalidArgument, "job param %q is reserved", LazyIDParam)
	}
	if jobQueue == "" {
		jobQueue = s.defaultQueue
	}
	if params == nil {
		params = queue.Params{}
	}
	key, err := jobKey(jobName, jobQueue, params)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.coll.UpdateOne(ctx, bson.M{"jobKey": key}, bson.M{"$setOnInsert": bson.M{
		"_id":       collection.NewID(),
		"jobName":   jobName,
		"jobParams": map[string]any(params),
		"jobQueue":  jobQueue,
		"createdAt": now,
		"updatedAt": now,
	}}, true)
	// a concurrent upsert of the same key loses on the unique index
	if err != nil && !errors.Is(err, collection.ErrDuplicate) {
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("create lazy asset"))
	}

	l, err := s.Find(ctx, bson.M{"jobKey": key})
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ecode.New(ecode.ServerErr, ecode.Failed("create lazy asset"))
	}
	return l, nil
}

// Get loads a record by id. A missing record yields nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*LazyAsset, error) {
	if id == "" {
		return nil, nil
	}
	return s.Find(ctx, collection.ByID(id))
}

// Find loads the first record matching filter, or nil, nil.
func (s *Store) Find(ctx context.Context, filter bson.M) (*LazyAsset, error) {
	rec, err := s.load(ctx, filter)
	if err != nil || rec == nil {
		return nil, err
	}
	return &LazyAsset{rec: *rec, store: s}, nil
}

func (s *Store) load(ctx context.Context, filter bson.M) (*Record, error) {
	var rec Record
	if err := s.coll.FindOne(ctx, filter, &rec); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return nil, nil
		}
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("load lazy asset"))
	}
	return &rec, nil
}

// cachedAssetID returns the asset a lazy id resolved to before, or "".
func (s *Store) cachedAssetID(ctx context.Context, lazyID string) string {
	v, err := s.cache.Get(ctx, lazyID)
	if err != nil {
		logger.Warn(ctx, "resolution cache read failed", "lazy_id", lazyID, "error", err)
		return ""
	}
	if v == nil {
		return ""
	}
	return *v
}

func (s *Store) cacheAssetID(ctx context.Context, lazyID, assetID string) {
	if err := s.cache.Set(ctx, lazyID, &assetID, s.cacheTTL); err != nil {
		logger.Warn(ctx, "resolution cache write failed", "lazy_id", lazyID, "error", err)
	}
}

func (s *Store) forget(ctx context.Context, lazyID string) {
	if err := s.cache.Delete(ctx, lazyID); err != nil {
		logger.Warn(ctx, "resolution cache delete failed", "lazy_id", lazyID, "error", err)
	}
}

// jobKey hashes the job descriptor. JSON encodes map keys in order.
func jobKey(name, queueName string, params queue.Params) (string, error) {
	b, err := json.Marshal(struct {
		Name   string       `json:"name"`
		Queue  string       `json:"queue"`
		Params queue.Params `json:"params"`
	}{name, queueName, params})
	if err != nil {
		return "", ecode.Wrap(ecode.InvalidArgument, err, ecode.FieldIsInvalid("jobParams"))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
