// Package concurrency bounds how many expensive operations run at once.
package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Manager is a counting semaphore with usage metrics
type Manager struct {
	maxConcurrent int32
	current       atomic.Int32
	semaphore     chan struct{}

	totalExecutions atomic.Int64
	rejectedCount   atomic.Int64
}

// NewManager creates a manager allowing up to max concurrent holders
//
// Usage:
//
//	cm, err := concurrency.NewManager(4)
//	if err != nil {
//	    return err
//	}
//	err = cm.Do(ctx, func(ctx context.Context) error {
//	    return decodeImage(ctx, buf)
//	})
func NewManager(max int32) (*Manager, error) {
	if max <= 0 {
		return nil, fmt.Errorf("max concurrent must be positive, got: %d", max)
	}

	return &Manager{
		maxConcurrent: max,
		semaphore:     make(chan struct{}, max),
	}, nil
}

// Acquire waits for a slot until ctx is done
func (m *Manager) Acquire(ctx context.Context) error {
	select {
	case m.semaphore <- struct{}{}:
		m.current.Add(1)
		m.totalExecutions.Add(1)
		return nil
	case <-ctx.Done():
		m.rejectedCount.Add(1)
		return fmt.Errorf("failed to acquire concurrency slot: %w", ctx.Err())
	}
}

// TryAcquire attempts to acquire without blocking
func (m *Manager) TryAcquire() bool {
	select {
	case m.semaphore <- struct{}{}:
		m.current.Add(1)
		m.totalExecutions.Add(1)
		return true
	default:
		return false
	}
}

// Release releases a slot
func (m *Manager) Release() {
	select {
	case <-m.semaphore:
		m.current.Add(-1)
	default:
		panic("attempting to release more slots than acquired")
	}
}

// Do runs fn while holding a slot. A nil manager runs fn unbounded.
func (m *Manager) Do(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	if err := m.Acquire(ctx); err != nil {
		return err
	}
	defer m.Release()
	return fn(ctx)
}

// Available returns the number of available slots
func (m *Manager) Available() int32 {
	return m.maxConcurrent - m.current.Load()
}

// GetMetrics returns current metrics
func (m *Manager) GetMetrics() map[string]int64 {
	return map[string]int64{
		"current":          int64(m.current.Load()),
		"total_executions": m.totalExecutions.Load(),
		"rejected_count":   m.rejectedCount.Load(),
	}
}
