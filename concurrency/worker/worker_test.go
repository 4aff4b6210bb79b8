package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{MaxWorkers: 0, QueueSize: 1}).Validate())
	assert.Error(t, (&Config{MaxWorkers: 1, QueueSize: 0}).Validate())
	assert.Error(t, (&Config{MaxWorkers: 1, QueueSize: 1, TaskTimeout: -1}).Validate())
}

func TestPoolRunsTasks(t *testing.T) {
	var count atomic.Int32
	pool := NewPool(&Config{MaxWorkers: 3, QueueSize: 10}, ProcessorFunc(func(_ context.Context, task any) error {
		count.Add(task.(int32))
		return nil
	}))
	pool.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(int32(1)))
	}
	pool.Stop(context.Background())

	assert.EqualValues(t, 5, count.Load())
	assert.EqualValues(t, 5, pool.GetMetrics()["completed_tasks"])
	assert.ErrorIs(t, pool.Submit(int32(1)), ErrPoolStopped)
}

func TestPoolCountsFailuresAndPanics(t *testing.T) {
	pool := NewPool(&Config{MaxWorkers: 1, QueueSize: 10})
	pool.Start()

	require.NoError(t, pool.Submit(func() error { return errors.New("boom") }))
	require.NoError(t, pool.Submit(func() { panic("bad") }))
	require.NoError(t, pool.Submit(func(context.Context) error { return nil }))
	pool.Stop(context.Background())

	m := pool.GetMetrics()
	assert.EqualValues(t, 2, m["failed_tasks"])
	assert.EqualValues(t, 1, m["completed_tasks"])
}

func TestPoolQueueFull(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(&Config{MaxWorkers: 1, QueueSize: 1}, ProcessorFunc(func(ctx context.Context, _ any) error {
		<-release
		return nil
	}))

	require.NoError(t, pool.Submit(1))
	assert.ErrorIs(t, pool.Submit(2), ErrQueueFull)

	pool.Start()
	close(release)
	pool.Stop(context.Background())
}

func TestPoolTaskTimeoutCancelsContext(t *testing.T) {
	pool := NewPool(&Config{MaxWorkers: 1, QueueSize: 1, TaskTimeout: 20 * time.Millisecond},
		ProcessorFunc(func(ctx context.Context, _ any) error {
			<-ctx.Done()
			return nil
		}))
	pool.Start()
	require.NoError(t, pool.Submit(1))
	pool.Stop(context.Background())

	assert.EqualValues(t, 1, pool.GetMetrics()["failed_tasks"])
}
