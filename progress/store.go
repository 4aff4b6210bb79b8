package progress

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/metrics"
	"github.com/stemyke/node-backend-sub000/notify"
)

// DefaultPollInterval is the re-fetch period of WaitToFinish.
const DefaultPollInterval = 150 * time.Millisecond

// Store creates, loads and awaits progress records.
type Store struct {
	coll         collection.Collection
	notifier     notify.Notifier
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier attaches the channel that advances are reported to.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithPollInterval sets the WaitToFinish re-fetch period.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithWaitTimeout bounds WaitToFinish. Zero waits until ctx ends.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.waitTimeout = d
		}
	}
}

// NewStore creates a store over coll.
func NewStore(coll collection.Collection, opts ...Option) *Store {
	s := &Store{
		coll:         coll,
		notifier:     notify.Noop{},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new record with current 0 and the given max, 100 when
// omitted.
func (s *Store) Create(ctx context.Context, max ...float64) (*Progress, error) {
	m := float64(DefaultMax)
	if len(max) > 0 {
		if err := validatePositive("max", max[0]); err != nil {
			return nil, err
		}
		m = max[0]
	}
	now := time.Now().UTC()
	rec := Record{
		ID:        collection.NewID(),
		Max:       m,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.coll.InsertOne(ctx, rec); err != nil {
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("create progress"))
	}
	logger.Debug(ctx, "progress created", "progress_id", rec.ID, "max", m)
	return newProgress(rec, s.coll, s.notifier), nil
}

// Get loads a record by id. A missing record yields nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Progress, error) {
	if id == "" {
		return nil, nil
	}
	return s.Find(ctx, collection.ByID(id))
}

// Find loads the first record matching filter, or nil, nil.
func (s *Store) Find(ctx context.Context, filter bson.M) (*Progress, error) {
	var rec Record
	if err := s.coll.FindOne(ctx, filter, &rec); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return nil, nil
		}
		return nil, ecode.Wrap(ecode.ServerErr, err, ecode.Failed("load progress"))
	}
	return newProgress(rec, s.coll, s.notifier), nil
}

// WaitToFinish re-fetches the record every poll interval until it is
// terminal and returns the final snapshot. It fails with NotFound when the
// record disappears, GenerationFailed carrying the recorded error, Canceled
// when it was canceled, Timeout past the configured bound, or the ctx error.
func (s *Store) WaitToFinish(ctx context.Context, id string) (p *Progress, err error) {
	start := time.Now()
	result := "done"
	defer func() {
		metrics.ObserveProgressWait(result, time.Since(start))
	}()

	var deadline <-chan time.Time
	if s.waitTimeout > 0 {
		t := time.NewTimer(s.waitTimeout)
		defer t.Stop()
		deadline = t.C
	}
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		p, err = s.Get(ctx, id)
		if err != nil {
			result = "error"
			return nil, err
		}
		if p == nil {
			result = "not_found"
			return nil, ecode.New(ecode.NotFound, ecode.NotExist("progress "+id))
		}
		rec := p.Record()
		switch {
		case rec.Error != "":
			result = "failed"
			return p, ecode.Errorf(ecode.GenerationFailed, "%s", rec.Error)
		case rec.Canceled:
			result = "canceled"
			return p, ecode.New(ecode.Canceled, "progress "+id+" was canceled")
		case rec.Percent() == 100:
			return p, nil
		}

		select {
		case <-ctx.Done():
			result = "aborted"
			return nil, ctx.Err()
		case <-deadline:
			result = "timeout"
			return nil, ecode.Errorf(ecode.Timeout, "waiting for progress %s exceeded %s", id, s.waitTimeout)
		case <-ticker.C:
		}
	}
}

// Cancel marks the record canceled and advanced to max. Waiters stop with
// Canceled; a job still writing to it is not told.
func (s *Store) Cancel(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ecode.New(ecode.NotFound, ecode.NotExist("progress "+id))
	}
	n, err := s.coll.UpdateOne(ctx, collection.ByID(id), bson.M{"$set": bson.M{
		"canceled":  true,
		"current":   p.Max(),
		"updatedAt": time.Now().UTC(),
	}}, false)
	if err != nil {
		return ecode.Wrap(ecode.ServerErr, err, ecode.Failed("cancel progress"))
	}
	if n == 0 {
		return ecode.New(ecode.NotFound, ecode.NotExist("progress "+id))
	}
	logger.Info(ctx, "progress canceled", "progress_id", id)
	s.notifier.ProgressChanged(ctx, id)
	return nil
}

// Remove deletes the record. A missing record is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.coll.DeleteOne(ctx, collection.ByID(id)); err != nil {
		return ecode.Wrap(ecode.ServerErr, err, ecode.Failed("remove progress"))
	}
	return nil
}
