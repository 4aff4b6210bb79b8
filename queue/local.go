package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemyke/node-backend-sub000/concurrency/worker"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/metrics"
)

// Local runs jobs in-process on a worker pool. Queue names only label jobs.
type Local struct {
	pool     *worker.Pool
	registry *Registry
}

// NewLocal creates a local queue. Call Start before enqueueing.
func NewLocal(cfg *worker.Config, registry *Registry) *Local {
	l := &Local{registry: registry}
	l.pool = worker.NewPool(cfg, worker.ProcessorFunc(l.process))
	return l
}

// Start starts the workers.
func (l *Local) Start() {
	l.pool.Start()
}

// Stop waits for queued jobs until ctx expires.
func (l *Local) Stop(ctx context.Context) {
	l.pool.Stop(ctx)
}

// Registry returns the handler registry.
func (l *Local) Registry() *Registry {
	return l.registry
}

// Metrics returns worker pool counters.
func (l *Local) Metrics() map[string]int64 {
	return l.pool.GetMetrics()
}

// Enqueue implements Queue.
func (l *Local) Enqueue(ctx context.Context, queueName, jobName string, params Params) error {
	job, err := NewJob(ctx, queueName, jobName, params)
	if err != nil {
		return err
	}
	if !l.registry.Has(job.Name) {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}
	if err := l.pool.Submit(job); err != nil {
		if errors.Is(err, worker.ErrPoolStopped) {
			return fmt.Errorf("%w: %v", ErrQueueClosed, err)
		}
		return fmt.Errorf("enqueue %s: %w", job.Name, err)
	}
	metrics.RecordJobEnqueued(job.Queue, job.Name)
	logger.Debug(ctx, "job enqueued", "queue", job.Queue, "job", job.Name)
	return nil
}

func (l *Local) process(ctx context.Context, task any) error {
	job, ok := task.(*Job)
	if !ok {
		return fmt.Errorf("%w: %T", ErrInvalidJob, task)
	}
	return l.registry.Run(ctx, job)
}
