package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTraceID(t *testing.T) {
	ctx, id := EnsureTraceID(context.Background())
	require.NotEmpty(t, id)
	assert.Equal(t, id, GetTraceID(ctx))

	again, same := EnsureTraceID(ctx)
	assert.Equal(t, id, same)
	assert.Equal(t, id, GetTraceID(again))
}

func TestWithAsyncContextOutlivesParent(t *testing.T) {
	parent, cancel := context.WithCancel(SetTraceID(context.Background(), "trace-1"))
	ctx, stop := WithAsyncContext(parent, time.Second)
	defer stop()

	cancel()
	assert.NoError(t, ctx.Err())
	assert.Equal(t, "trace-1", GetTraceID(ctx))
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestDetach(t *testing.T) {
	var ran bool
	done := Detach(context.Background(), 0, func(ctx context.Context) {
		ran = GetTraceID(ctx) != ""
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detached function did not finish")
	}
	assert.True(t, ran)
}
