// Package ctxutil provides request-scoped context helpers: trace ids that
// flow into every log line, Gin context integration, and detached contexts
// for work that must outlive the request that started it.
//
//	ctx, traceID := ctxutil.EnsureTraceID(ctx)
//
//	bg, cancel := ctxutil.WithAsyncContext(ctx, time.Minute)
//	go func() {
//	    defer cancel()
//	    _ = lazy.StartWorking(bg)
//	}()
package ctxutil
