package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemyke/node-backend-sub000/concurrency/worker"
	"github.com/stemyke/node-backend-sub000/ctxutil"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []*Job
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, queueName, jobName string, params Params) error {
	if q.err != nil {
		return q.err
	}
	job, err := NewJob(ctx, queueName, jobName, params)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func TestNewJob(t *testing.T) {
	ctx := ctxutil.SetTraceID(context.Background(), "trace-1")
	params := Params{"lazyId": "abc"}

	job, err := NewJob(ctx, "", "render", params)
	require.NoError(t, err)
	assert.Equal(t, DefaultQueue, job.Queue)
	assert.Equal(t, "trace-1", job.TraceID)
	assert.Equal(t, "abc", job.Params.String("lazyId"))

	job.Params["extra"] = 1
	assert.NotContains(t, params, "extra")

	_, err = NewJob(ctx, "q", "", nil)
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestRegistryRun(t *testing.T) {
	r := NewRegistry()
	r.Register("ok", func(ctx context.Context, p Params) error {
		assert.Equal(t, "t-2", ctxutil.GetTraceID(ctx))
		return nil
	})
	r.Register("boom", func(ctx context.Context, p Params) error {
		panic("kaput")
	})
	assert.Equal(t, []string{"boom", "ok"}, r.Names())

	ctx := context.Background()
	assert.NoError(t, r.Run(ctx, &Job{Name: "ok", TraceID: "t-2"}))

	err := r.Run(ctx, &Job{Name: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaput")

	assert.ErrorIs(t, r.Run(ctx, &Job{Name: "missing"}), ErrUnknownJob)
}

func TestLocalQueue(t *testing.T) {
	r := NewRegistry()
	got := make(chan Params, 1)
	r.Register("render", func(ctx context.Context, p Params) error {
		got <- p
		return nil
	})

	q := NewLocal(&worker.Config{MaxWorkers: 2, QueueSize: 4, TaskTimeout: time.Second}, r)
	q.Start()

	require.NoError(t, q.Enqueue(context.Background(), "images", "render", Params{"lazyId": "l1"}))
	select {
	case p := <-got:
		assert.Equal(t, "l1", p.String("lazyId"))
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	assert.ErrorIs(t, q.Enqueue(context.Background(), "images", "unknown", nil), ErrUnknownJob)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Stop(ctx)

	assert.ErrorIs(t, q.Enqueue(context.Background(), "images", "render", nil), ErrQueueClosed)
}

func TestSchedulerAdd(t *testing.T) {
	q := &recordingQueue{}
	s := NewScheduler(q)

	_, err := s.Add(Entry{Spec: "not a spec", Job: "cleanup"})
	assert.Error(t, err)

	_, err = s.Add(Entry{Spec: "@every 1h"})
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = s.Add(Entry{Spec: "*/5 * * * *", Queue: "maintenance", Job: "cleanup"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestSchedulerFire(t *testing.T) {
	q := &recordingQueue{}
	s := NewScheduler(q)

	s.fire(Entry{Spec: "@hourly", Queue: "maintenance", Job: "cleanup", Params: Params{"age": "24h"}})
	require.Len(t, q.jobs, 1)
	assert.Equal(t, "maintenance", q.jobs[0].Queue)
	assert.Equal(t, "cleanup", q.jobs[0].Name)
	assert.NotEmpty(t, q.jobs[0].TraceID)

	q.err = errors.New("broker down")
	s.fire(Entry{Spec: "@hourly", Job: "cleanup"})
	assert.Len(t, q.jobs, 1)
}

func TestRabbitMQBreakerOpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	r := NewRabbitMQ(nil, "", 0)

	for i := 0; i < 3; i++ {
		err := r.Enqueue(ctx, DefaultQueue, "thumbnail", nil)
		require.ErrorIs(t, err, ErrNotConnected)
	}
	err := r.Enqueue(ctx, DefaultQueue, "thumbnail", nil)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, r.breaker.State())
}
