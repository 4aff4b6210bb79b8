package lazyasset

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/stemyke/node-backend-sub000/asset"
	"github.com/stemyke/node-backend-sub000/ctxutil"
	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/queue"
)

// maxIdleRounds bounds how often LoadAsset re-polls a finished progress
// whose job has not written its asset, or a canceled one nobody replaced.
const maxIdleRounds = 20

// Record is the persisted state of a lazy asset.
type Record struct {
	ID         string         `bson:"_id" json:"id"`
	JobName    string         `bson:"jobName" json:"jobName"`
	JobParams  map[string]any `bson:"jobParams" json:"jobParams"`
	JobQueue   string         `bson:"jobQueue" json:"jobQueue"`
	JobKey     string         `bson:"jobKey" json:"-"`
	ProgressID string         `bson:"progressId,omitempty" json:"progressId,omitempty"`
	AssetID    string         `bson:"assetId,omitempty" json:"assetId,omitempty"`
	CreatedAt  time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// LazyAsset is an asset that a job generates on first load.
type LazyAsset struct {
	mu    sync.Mutex
	rec   Record
	store *Store
}

// ID returns the record id.
func (l *LazyAsset) ID() string { return l.Record().ID }

// JobName returns the generating job.
func (l *LazyAsset) JobName() string { return l.Record().JobName }

// JobQueue returns the queue the job runs on.
func (l *LazyAsset) JobQueue() string { return l.Record().JobQueue }

// JobParams returns a copy of the job params.
func (l *LazyAsset) JobParams() queue.Params { return queue.Params(l.Record().JobParams).Clone() }

// ProgressID returns the progress of the latest start, or "".
func (l *LazyAsset) ProgressID() string { return l.Record().ProgressID }

// AssetID returns the generated asset, or "".
func (l *LazyAsset) AssetID() string { return l.Record().AssetID }

// Record returns a snapshot of the state as last loaded.
func (l *LazyAsset) Record() Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rec
}

// MarshalJSON encodes the record.
func (l *LazyAsset) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Record())
}

// reload refreshes the record and reports whether it still exists.
func (l *LazyAsset) reload(ctx context.Context) (bool, error) {
	id := l.ID()
	rec, err := l.store.load(ctx, collection.ByID(id))
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	l.mu.Lock()
	l.rec = *rec
	l.mu.Unlock()
	return true, nil
}

// LoadAsset returns the generated asset, waiting for or starting its
// generation as needed. It returns nil, nil when the record is gone.
// Concurrent callers wait on the same progress; exactly one starts the job.
//
// A progress that disappears while being waited on is not reported as an
// error: generation is started again under a new progress. A canceled
// progress that no restart replaces within maxIdleRounds polls is replaced
// the same way.
func (l *LazyAsset) LoadAsset(ctx context.Context) (*asset.Asset, error) {
	s := l.store
	idle, canceled := 0, 0
	for {
		found, err := l.reload(ctx)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		rec := l.Record()

		if rec.AssetID != "" {
			a, err := s.assets.Read(ctx, rec.AssetID)
			if err != nil {
				return nil, err
			}
			if a != nil {
				s.cacheAssetID(ctx, rec.ID, a.ID())
			}
			return a, nil
		}

		if rec.ProgressID != "" {
			_, err := s.progresses.WaitToFinish(ctx, rec.ProgressID)
			switch {
			case err == nil:
				// finished but not written yet
				idle++
				if idle > maxIdleRounds {
					return nil, ecode.Errorf(ecode.GenerationFailed, "job %s finished without an asset", rec.JobName)
				}
			case ecode.Is(err, ecode.Canceled):
				// a restart replaces the progress; claim it ourselves if none does
				canceled++
				if canceled > maxIdleRounds {
					canceled = 0
					if err := l.startWorking(ctx, rec.ProgressID); err != nil {
						return nil, err
					}
					continue
				}
			case ecode.Is(err, ecode.NotFound):
				if err := l.startWorking(ctx, rec.ProgressID); err != nil {
					return nil, err
				}
				continue
			default:
				return nil, err
			}
			if err := l.pause(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if err := l.startWorking(ctx, ""); err != nil {
			return nil, err
		}
	}
}

func (l *LazyAsset) pause(ctx context.Context) error {
	t := time.NewTimer(l.store.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// startWorking creates a progress and claims the record for it when the
// record's progress is still prev ("" meaning none). The claim is a
// conditional update, so of concurrent callers only one enqueues. Enqueue
// failures are recorded on the progress for waiters to see.
func (l *LazyAsset) startWorking(ctx context.Context, prev string) error {
	s := l.store
	rec := l.Record()

	p, err := s.progresses.Create(ctx)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": rec.ID, "progressId": bson.M{"$exists": false}}
	if prev != "" {
		filter["progressId"] = prev
	}
	n, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"progressId": p.ID(),
		"updatedAt":  time.Now().UTC(),
	}}, false)
	if err != nil || n == 0 {
		if rerr := s.progresses.Remove(ctx, p.ID()); rerr != nil {
			logger.Warn(ctx, "failed to remove unused progress", "progress_id", p.ID(), "error", rerr)
		}
		if err != nil {
			return ecode.Wrap(ecode.ServerErr, err, ecode.Failed("start lazy asset"))
		}
		logger.Debug(ctx, "lazy asset already started", "lazy_id", rec.ID)
		return nil
	}

	l.mu.Lock()
	l.rec.ProgressID = p.ID()
	l.mu.Unlock()

	params := queue.Params(rec.JobParams).Clone()
	params[LazyIDParam] = rec.ID
	if err := s.queue.Enqueue(ctx, rec.JobQueue, rec.JobName, params); err != nil {
		logger.Error(ctx, "failed to enqueue lazy asset job", "lazy_id", rec.ID, "job", rec.JobName, "error", err)
		if serr := p.SetError(ctx, "failed to enqueue "+rec.JobName+": "+err.Error()); serr != nil {
			return serr
		}
		return nil
	}
	logger.Info(ctx, "lazy asset job enqueued", "lazy_id", rec.ID, "job", rec.JobName, "progress_id", p.ID())
	return nil
}

// StartWorking restarts generation in the background: an existing progress
// is canceled and a fresh job is enqueued. Errors are logged. The returned
// channel closes when the restart is done.
func (l *LazyAsset) StartWorking(ctx context.Context) <-chan struct{} {
	return ctxutil.Detach(ctx, l.store.asyncTimeout, func(ctx context.Context) {
		if err := l.restart(ctx); err != nil {
			logger.Error(ctx, "failed to restart lazy asset", "lazy_id", l.ID(), "error", err)
		}
	})
}

func (l *LazyAsset) restart(ctx context.Context) error {
	found, err := l.reload(ctx)
	if err != nil || !found {
		return err
	}
	prev := l.ProgressID()
	if prev != "" {
		if err := l.store.progresses.Cancel(ctx, prev); err != nil && !ecode.Is(err, ecode.NotFound) {
			return err
		}
	}
	return l.startWorking(ctx, prev)
}

// WriteAsset records a as the generated asset and returns it. An asset
// generated earlier is unlinked.
func (l *LazyAsset) WriteAsset(ctx context.Context, a *asset.Asset) (*asset.Asset, error) {
	s := l.store
	rec := l.Record()
	n, err := s.coll.UpdateOne(ctx, collection.ByID(rec.ID), bson.M{"$set": bson.M{
		"assetId":   a.ID(),
		"updatedAt": time.Now().UTC(),
	}}, false)
	if err != nil {
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("save lazy asset"))
	}
	if n == 0 {
		return nil, ecode.New(ecode.NotFound, ecode.NotExist("lazy asset "+rec.ID))
	}

	l.mu.Lock()
	l.rec.AssetID = a.ID()
	l.mu.Unlock()
	s.cacheAssetID(ctx, rec.ID, a.ID())

	if rec.AssetID != "" && rec.AssetID != a.ID() {
		if _, err := s.assets.Unlink(ctx, rec.AssetID); err != nil && !ecode.Is(err, ecode.NotFound) {
			logger.Warn(ctx, "failed to unlink replaced asset", "asset_id", rec.AssetID, "error", err)
		}
	}
	return a, nil
}

// Unlink deletes the generated asset and, unless a job is still running,
// the record itself. Failures are logged.
func (l *LazyAsset) Unlink(ctx context.Context) string {
	s := l.store
	if _, err := l.reload(ctx); err != nil {
		logger.Error(ctx, "failed to reload lazy asset", "lazy_id", l.ID(), "error", err)
	}
	rec := l.Record()

	inFlight := false
	if rec.ProgressID != "" {
		p, err := s.progresses.Get(ctx, rec.ProgressID)
		if err != nil {
			logger.Error(ctx, "failed to load lazy asset progress", "lazy_id", rec.ID, "error", err)
		}
		inFlight = p != nil && !p.IsTerminal()
	}

	if !inFlight {
		if _, err := s.coll.DeleteOne(ctx, collection.ByID(rec.ID)); err != nil {
			logger.Error(ctx, "failed to delete lazy asset", "lazy_id", rec.ID, "error", err)
		} else if rec.ProgressID != "" {
			if err := s.progresses.Remove(ctx, rec.ProgressID); err != nil {
				logger.Warn(ctx, "failed to remove lazy asset progress", "progress_id", rec.ProgressID, "error", err)
			}
		}
	}

	if rec.AssetID != "" {
		if _, err := s.assets.Unlink(ctx, rec.AssetID); err != nil && !ecode.Is(err, ecode.NotFound) {
			logger.Error(ctx, "failed to unlink lazy asset payload", "asset_id", rec.AssetID, "error", err)
		}
	}
	s.forget(ctx, rec.ID)
	return rec.ID
}
