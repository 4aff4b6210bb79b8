// Package queue dispatches named background jobs to registered handlers,
// either on a local worker pool or through RabbitMQ.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stemyke/node-backend-sub000/ctxutil"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/metrics"
)

// DefaultQueue is used when a job names no queue.
const DefaultQueue = "main"

var (
	ErrUnknownJob  = errors.New("unknown job")
	ErrInvalidJob  = errors.New("invalid job")
	ErrQueueClosed = errors.New("queue is closed")
)

// Params are the opaque job parameters. They travel as JSON, so numbers
// arrive as float64 on remote consumers.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the string value of key or "".
func (p Params) String(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Handler executes a job.
type Handler func(ctx context.Context, params Params) error

// Queue accepts jobs for background execution.
type Queue interface {
	Enqueue(ctx context.Context, queueName, jobName string, params Params) error
}

// Job is the unit carried by a queue transport.
type Job struct {
	Queue      string    `json:"queue"`
	Name       string    `json:"name"`
	Params     Params    `json:"params"`
	TraceID    string    `json:"trace_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob builds a job, copying params and the trace id of ctx.
func NewJob(ctx context.Context, queueName, jobName string, params Params) (*Job, error) {
	if jobName == "" {
		return nil, fmt.Errorf("%w: empty job name", ErrInvalidJob)
	}
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Job{
		Queue:      queueName,
		Name:       jobName,
		Params:     params.Clone(),
		TraceID:    ctxutil.GetTraceID(ctx),
		EnqueuedAt: time.Now(),
	}, nil
}

// Context returns parent carrying the job's trace id.
func (j *Job) Context(parent context.Context) context.Context {
	if j.TraceID == "" {
		ctx, _ := ctxutil.EnsureTraceID(parent)
		return ctx
	}
	return ctxutil.SetTraceID(parent, j.TraceID)
}

// Registry maps job names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler of name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Has reports whether name has a handler.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names lists registered job names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes job with its handler. Panics are returned as errors.
func (r *Registry) Run(ctx context.Context, job *Job) (err error) {
	r.mu.RLock()
	h, ok := r.handlers[job.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}

	ctx = job.Context(ctx)
	start := time.Now()
	logger.Debug(ctx, "job started", "queue", job.Queue, "job", job.Name)

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, rec)
		}
		d := time.Since(start)
		metrics.RecordJobRun(job.Name, err, d)
		if err != nil {
			logger.Error(ctx, "job failed", "queue", job.Queue, "job", job.Name, "duration", d, "error", err)
			return
		}
		logger.Info(ctx, "job completed", "queue", job.Queue, "job", job.Name, "duration", d)
	}()

	return h(ctx, job.Params)
}
