package ctxutil

import (
	"context"
	"time"
)

const (
	// DefaultAsyncTimeout bounds detached work started from a request
	DefaultAsyncTimeout = 30 * time.Second
)

// WithAsyncContext creates a context suitable for async operations.
// It keeps the parent's values (trace id) but not its cancellation, and
// applies its own timeout so detached work cannot run forever.
func WithAsyncContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultAsyncTimeout
	}
	ctx, _ := EnsureTraceID(context.WithoutCancel(parent))
	return context.WithTimeout(ctx, timeout)
}

// Detach runs fn on its own goroutine with an async context derived from parent.
// The returned channel is closed when fn returns.
func Detach(parent context.Context, timeout time.Duration, fn func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})
	ctx, cancel := WithAsyncContext(parent, timeout)
	go func() {
		defer close(done)
		defer cancel()
		fn(ctx)
	}()
	return done
}
