package lazyasset

import (
	"context"
	"fmt"

	"github.com/stemyke/node-backend-sub000/asset"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/progress"
	"github.com/stemyke/node-backend-sub000/queue"
)

// Result is the output of a generation job.
type Result struct {
	Data []byte
	// ContentType is sniffed from Data when empty.
	ContentType string
	Meta        *asset.Meta
}

// GenerateFunc produces the payload of a lazy asset. params are the job
// params without the lazy id. Progress reported through tracker maps onto
// the record's progress, short of completion.
type GenerateFunc func(ctx context.Context, params queue.Params, tracker progress.Tracker) (*Result, error)

// Generator turns GenerateFuncs into queue handlers that write their result
// back to the lazy asset that enqueued them.
type Generator struct {
	store *Store
}

// NewGenerator creates a generator over store.
func NewGenerator(store *Store) *Generator {
	return &Generator{store: store}
}

// Register adds fn to reg under jobName.
func (g *Generator) Register(reg *queue.Registry, jobName string, fn GenerateFunc) {
	reg.Register(jobName, g.Handler(fn))
}

// Handler wraps fn. Failures and panics end up on the progress record.
func (g *Generator) Handler(fn GenerateFunc) queue.Handler {
	return func(ctx context.Context, params queue.Params) error {
		lazyID := params.String(LazyIDParam)
		if lazyID == "" {
			return ecode.New(ecode.InvalidArgument, ecode.FieldIsRequired(LazyIDParam))
		}
		l, err := g.store.Get(ctx, lazyID)
		if err != nil {
			return err
		}
		if l == nil {
			logger.Warn(ctx, "lazy asset removed before generation", "lazy_id", lazyID)
			return nil
		}
		pid := l.ProgressID()
		p, err := g.store.progresses.Get(ctx, pid)
		if err != nil {
			return err
		}
		if p == nil || p.IsTerminal() {
			logger.Info(ctx, "lazy asset progress is gone or finished, skipping", "lazy_id", lazyID, "progress_id", pid)
			return nil
		}

		if err := g.generate(ctx, l, p, fn, params); err != nil {
			logger.Error(ctx, "lazy asset generation failed", "lazy_id", lazyID, "job", l.JobName(), "error", err)
			if serr := p.SetError(ctx, err.Error()); serr != nil {
				logger.Error(ctx, "failed to record generation error", "progress_id", pid, "error", serr)
			}
			return err
		}
		return nil
	}
}

func (g *Generator) generate(ctx context.Context, l *LazyAsset, p *progress.Progress, fn GenerateFunc, params queue.Params) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()

	jobParams := params.Clone()
	delete(jobParams, LazyIDParam)

	var tracker progress.Tracker = p
	if span := p.Max() - 1 - p.Current(); span > 0 {
		sub, err := progress.NewSubProgress(p, p.Current(), span, progress.DefaultMax)
		if err != nil {
			return err
		}
		tracker = sub
	}

	res, err := fn(ctx, jobParams, tracker)
	if err != nil {
		return err
	}
	if res == nil || len(res.Data) == 0 {
		return ecode.Errorf(ecode.GenerationFailed, "job %s produced no data", l.JobName())
	}

	// a restart may have replaced this run
	found, err := l.reload(ctx)
	if err != nil {
		return err
	}
	if !found || l.ProgressID() != p.ID() {
		logger.Info(ctx, "discarding stale generation result", "lazy_id", l.ID(), "progress_id", p.ID())
		return nil
	}

	a, err := g.store.assets.WriteBuffer(ctx, res.Data, res.Meta, res.ContentType)
	if err != nil {
		return err
	}
	if _, err := l.WriteAsset(ctx, a); err != nil {
		if _, uerr := a.Unlink(ctx); uerr != nil {
			logger.Warn(ctx, "failed to unlink orphaned asset", "asset_id", a.ID(), "error", uerr)
		}
		return err
	}
	if rest := p.Max() - p.Current(); rest > 0 {
		return p.Advance(ctx, rest)
	}
	return nil
}
