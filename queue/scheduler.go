package queue

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/stemyke/node-backend-sub000/ctxutil"
	"github.com/stemyke/node-backend-sub000/logging/logger"
)

// Entry enqueues Job on Queue whenever Spec fires.
type Entry struct {
	Spec   string
	Queue  string
	Job    string
	Params Params
}

// Scheduler enqueues jobs on cron schedules.
type Scheduler struct {
	cron  *cron.Cron
	queue Queue
}

// NewScheduler creates a scheduler using standard five-field specs and
// descriptors such as "@every 1h".
func NewScheduler(q Queue) *Scheduler {
	l := cronLogger{}
	return &Scheduler{
		cron:  cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l))),
		queue: q,
	}
}

// Add registers an entry.
func (s *Scheduler) Add(e Entry) (cron.EntryID, error) {
	if e.Job == "" {
		return 0, fmt.Errorf("%w: schedule %q has no job", ErrInvalidJob, e.Spec)
	}
	id, err := s.cron.AddFunc(e.Spec, func() { s.fire(e) })
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", e.Spec, err)
	}
	return id, nil
}

// Len returns the number of scheduled entries.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running fires until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) fire(e Entry) {
	ctx, _ := ctxutil.EnsureTraceID(context.Background())
	if err := s.queue.Enqueue(ctx, e.Queue, e.Job, e.Params); err != nil {
		logger.Error(ctx, "scheduled enqueue failed", "schedule", e.Spec, "job", e.Job, "error", err)
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(context.Background(), append([]any{"cron: " + msg}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error(context.Background(), append([]any{"cron: " + msg, "error", err}, keysAndValues...)...)
}
